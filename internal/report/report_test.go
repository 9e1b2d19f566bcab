package report

import (
	"testing"

	"github.com/gtsplugin/sizecore/internal/core/event"
	"golang.org/x/text/language"
)

func TestKillLines(t *testing.T) {
	cases := []struct {
		lang string
		kind string
		want string
	}{
		{"en", "crush", "Giantess crushed Bandit"},
		{"en", "shrink", "Giantess shrank Bandit to nothing"},
		{"en", "stomp", "Giantess killed Bandit"},
		{"de", "crush", "Giantess hat Bandit zerquetscht"},
		{"de-AT", "shrink", "Giantess hat Bandit ins Nichts geschrumpft"},
		{"fr", "crush", "Giantess crushed Bandit"},
		{"not a tag", "crush", "Giantess crushed Bandit"},
	}
	for _, tc := range cases {
		t.Run(tc.lang+"/"+tc.kind, func(t *testing.T) {
			r := New(tc.lang)
			got := r.Kill(event.KillReported{Kind: tc.kind, InitiatorName: "Giantess", TargetName: "Bandit"})
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestEndedLines(t *testing.T) {
	r := New("en")
	if got := r.Ended(event.InteractionEnded{Reason: event.EndEscaped}, "Giantess", "Bandit"); got != "Bandit escaped from Giantess" {
		t.Fatalf("escaped = %q", got)
	}
	if got := r.Ended(event.InteractionEnded{Reason: event.EndStale}, "Giantess", "Bandit"); got != "" {
		t.Fatalf("stale produced %q", got)
	}
}

func TestSummaryAndLanguage(t *testing.T) {
	r := New("ja")
	if r.Language() != language.Japanese {
		t.Fatalf("language = %s", r.Language())
	}
	if got := New("en").Summary(3, 1); got != "3 crushed, 1 shrunk" {
		t.Fatalf("summary = %q", got)
	}
}
