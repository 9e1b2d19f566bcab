// Package report turns kill and interaction events into player-facing lines
// in the session language.
package report

import (
	"github.com/gtsplugin/sizecore/internal/core/event"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. English text doubles as the key.
const (
	msgCrushed  = "%[1]s crushed %[2]s"
	msgShrunk   = "%[1]s shrank %[2]s to nothing"
	msgKilled   = "%[1]s killed %[2]s"
	msgEscaped  = "%[2]s escaped from %[1]s"
	msgReleased = "%[1]s let go of %[2]s"
	msgSummary  = "%[1]d crushed, %[2]d shrunk"
)

var translations = map[language.Tag]map[string]string{
	language.German: {
		msgCrushed:  "%[1]s hat %[2]s zerquetscht",
		msgShrunk:   "%[1]s hat %[2]s ins Nichts geschrumpft",
		msgKilled:   "%[1]s hat %[2]s getötet",
		msgEscaped:  "%[2]s ist %[1]s entkommen",
		msgReleased: "%[1]s hat %[2]s losgelassen",
		msgSummary:  "%[1]d zerquetscht, %[2]d geschrumpft",
	},
	language.Japanese: {
		msgCrushed:  "%[1]sが%[2]sを踏み潰した",
		msgShrunk:   "%[1]sが%[2]sを消し去った",
		msgKilled:   "%[1]sが%[2]sを倒した",
		msgEscaped:  "%[2]sが%[1]sから逃げ出した",
		msgReleased: "%[1]sが%[2]sを放した",
		msgSummary:  "踏み潰し%[1]d、縮小%[2]d",
	},
}

// Reporter formats feedback lines. Not safe for concurrent use.
type Reporter struct {
	p   *message.Printer
	tag language.Tag
}

// New returns a Reporter for the closest supported language to lang;
// unknown or malformed tags fall back to English.
func New(lang string) *Reporter {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, key := range []string{msgCrushed, msgShrunk, msgKilled, msgEscaped, msgReleased, msgSummary} {
		_ = b.SetString(language.English, key, key)
	}
	for tag, msgs := range translations {
		for key, text := range msgs {
			_ = b.SetString(tag, key, text)
		}
	}

	supported := []language.Tag{language.English, language.German, language.Japanese}
	want, err := language.Parse(lang)
	if err != nil {
		want = language.English
	}
	_, idx, _ := language.NewMatcher(supported).Match(want)
	tag := supported[idx]
	return &Reporter{p: message.NewPrinter(tag, message.Catalog(b)), tag: tag}
}

// Language returns the tag in use.
func (r *Reporter) Language() language.Tag { return r.tag }

// Kill formats a finished resolution.
func (r *Reporter) Kill(ev event.KillReported) string {
	switch ev.Kind {
	case "crush":
		return r.p.Sprintf(msgCrushed, ev.InitiatorName, ev.TargetName)
	case "shrink":
		return r.p.Sprintf(msgShrunk, ev.InitiatorName, ev.TargetName)
	}
	return r.p.Sprintf(msgKilled, ev.InitiatorName, ev.TargetName)
}

// Ended formats the end of an interaction. Only escapes and explicit
// releases produce a line; other reasons return "".
func (r *Reporter) Ended(ev event.InteractionEnded, holder, held string) string {
	switch ev.Reason {
	case event.EndEscaped:
		return r.p.Sprintf(msgEscaped, holder, held)
	case event.EndReleased:
		return r.p.Sprintf(msgReleased, holder, held)
	}
	return ""
}

// Summary formats session totals.
func (r *Reporter) Summary(crushed, shrunk int) string {
	return r.p.Sprintf(msgSummary, crushed, shrunk)
}
