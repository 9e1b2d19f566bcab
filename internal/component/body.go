package component

import "github.com/go-gl/mathgl/mgl64"

// Body stores the spatial state of an actor. Nodes are skeleton offsets from
// Position at scale 1; the sandbox scales them by Actor.Scale.
type Body struct {
	Position   mgl64.Vec3
	Nodes      map[string]mgl64.Vec3
	Suppressed bool // physics disabled while pinned to a holder
}
