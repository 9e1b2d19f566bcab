package event

import "testing"

func TestBusDeliversNextSwap(t *testing.T) {
	b := NewBus()
	var got []KillReported
	Subscribe(b, func(ev KillReported) { got = append(got, ev) })

	Emit(b, KillReported{Kind: "crush"})
	b.DispatchAll()
	if len(got) != 0 {
		t.Fatalf("event delivered before swap")
	}
	if b.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", b.Pending())
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 || got[0].Kind != "crush" {
		t.Fatalf("got %+v", got)
	}

	// Front buffer is cleared on the following swap.
	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 {
		t.Fatalf("event delivered twice: %+v", got)
	}
}

func TestBusTypesAreIsolated(t *testing.T) {
	b := NewBus()
	kills, ends := 0, 0
	Subscribe(b, func(KillReported) { kills++ })
	Subscribe(b, func(InteractionEnded) { ends++ })

	Emit(b, InteractionEnded{Kind: "grab", Reason: EndEscaped})
	Emit(b, InteractionEnded{Kind: "hug", Reason: EndReleased})
	b.SwapBuffers()
	b.DispatchAll()
	if kills != 0 || ends != 2 {
		t.Fatalf("kills=%d ends=%d", kills, ends)
	}
}

func TestBusClear(t *testing.T) {
	b := NewBus()
	n := 0
	Subscribe(b, func(KillReported) { n++ })
	Emit(b, KillReported{})
	b.Clear()
	b.SwapBuffers()
	b.DispatchAll()
	if n != 0 {
		t.Fatalf("cleared event delivered")
	}
}
