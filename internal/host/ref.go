package host

import "github.com/gtsplugin/sizecore/internal/core/ecs"

// Ref is a weak, revalidated reference to an entity. It never keeps the entity
// alive and must be re-resolved on every use: a Ref captured on one tick may be
// stale on the next.
type Ref struct {
	id ecs.EntityID
}

// RefOf captures a weak reference to e. A nil entity yields the empty Ref.
func RefOf(e Entity) Ref {
	if e == nil {
		return Ref{}
	}
	return Ref{id: e.ID()}
}

// RefTo builds a Ref from a bare id.
func RefTo(id ecs.EntityID) Ref { return Ref{id: id} }

func (r Ref) ID() ecs.EntityID { return r.id }
func (r Ref) IsZero() bool     { return r.id.IsZero() }

// Get resolves the reference. The second result is false when the entity no
// longer exists.
func (r Ref) Get(res Resolver) (Entity, bool) {
	if r.id.IsZero() || res == nil {
		return nil, false
	}
	return res.Lookup(r.id)
}

// SizeRatio returns holder scale over held scale, guarding against a zero
// denominator.
func SizeRatio(s Sizer, holder, held Entity) float64 {
	hs := s.Scale(held)
	if hs <= 0 {
		hs = 0.0001
	}
	return s.Scale(holder) / hs
}
