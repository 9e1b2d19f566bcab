package resolution

import (
	"github.com/gtsplugin/sizecore/internal/data"
	"github.com/gtsplugin/sizecore/internal/host"
)

// Variant is the part of a resolution that differs between kinds: the gate's
// exemption capabilities and the terminal effect set.
type Variant struct {
	Kind    string
	Exempt  []host.Capability
	Effects data.EffectEntry
}

// Crush returns the crush variant. Flying targets cannot be crushed.
func Crush(effects *data.EffectTable) Variant {
	return newVariant("crush", effects, host.CapFlying)
}

// Shrink returns the shrink-to-nothing variant. Flying and ethereal targets
// are exempt.
func Shrink(effects *data.EffectTable) Variant {
	return newVariant("shrink", effects, host.CapFlying, host.CapEthereal)
}

func newVariant(kind string, effects *data.EffectTable, exempt ...host.Capability) Variant {
	v := Variant{
		Kind:    kind,
		Exempt:  exempt,
		Effects: data.EffectEntry{Kind: kind, EffectScale: 1, TransferScale: 1},
	}
	if effects != nil {
		if e := effects.Get(kind); e != nil {
			v.Effects = *e
		}
	}
	return v
}
