package world

// VisibilityTracker maintains, per player, the set of other players they
// have been told about ("known") and the reverse index ("known by") used
// for O(K) cleanup on departure. Game-thread only.
type VisibilityTracker struct {
	known   map[uint64]map[uint64]struct{}
	knownBy map[uint64]map[uint64]struct{}
}

// NewVisibilityTracker constructs an empty tracker.
func NewVisibilityTracker() *VisibilityTracker {
	return &VisibilityTracker{
		known:   make(map[uint64]map[uint64]struct{}),
		knownBy: make(map[uint64]map[uint64]struct{}),
	}
}

// Diff holds the entities a viewer gained or lost sight of during one
// Update call.
type Diff struct {
	Entered []uint64
	Left    []uint64
}

// Update reconciles viewer's known set against visibleNow, recording the
// change in both known and known-by and returning what entered and left.
func (v *VisibilityTracker) Update(viewer uint64, visibleNow []uint64) Diff {
	visible := make(map[uint64]struct{}, len(visibleNow))
	for _, id := range visibleNow {
		visible[id] = struct{}{}
	}

	cur := v.known[viewer]
	var diff Diff

	for id := range visible {
		if _, ok := cur[id]; !ok {
			diff.Entered = append(diff.Entered, id)
		}
	}
	for id := range cur {
		if _, ok := visible[id]; !ok {
			diff.Left = append(diff.Left, id)
		}
	}

	for _, id := range diff.Entered {
		v.addKnown(viewer, id)
	}
	for _, id := range diff.Left {
		v.removeKnown(viewer, id)
	}

	return diff
}

// Initialize seeds viewer's known set with ids, used right after the
// initial full snapshot is sent on login so the next Update produces the
// correct incremental diff.
func (v *VisibilityTracker) Initialize(viewer uint64, ids []uint64) {
	for _, id := range ids {
		v.addKnown(viewer, id)
	}
}

// AddKnown records that viewer has been told about subject, without
// running a full diff. Used when a single-entity update (e.g. a new
// arrival) is sent outside the batched broadcast path.
func (v *VisibilityTracker) AddKnown(viewer, subject uint64) {
	v.addKnown(viewer, subject)
}

// Forget removes subject from viewer's known set (and the reverse index),
// used when a viewer falls out of range of subject without either
// disconnecting.
func (v *VisibilityTracker) Forget(viewer, subject uint64) {
	v.removeKnown(viewer, subject)
}

func (v *VisibilityTracker) addKnown(viewer, subject uint64) {
	set := v.known[viewer]
	if set == nil {
		set = make(map[uint64]struct{})
		v.known[viewer] = set
	}
	set[subject] = struct{}{}

	rev := v.knownBy[subject]
	if rev == nil {
		rev = make(map[uint64]struct{})
		v.knownBy[subject] = rev
	}
	rev[viewer] = struct{}{}
}

func (v *VisibilityTracker) removeKnown(viewer, subject uint64) {
	if set := v.known[viewer]; set != nil {
		delete(set, subject)
		if len(set) == 0 {
			delete(v.known, viewer)
		}
	}
	if rev := v.knownBy[subject]; rev != nil {
		delete(rev, viewer)
		if len(rev) == 0 {
			delete(v.knownBy, subject)
		}
	}
}

// KnownBy returns, as a slice, every viewer that currently knows about
// subject — the set of peers who must be told when subject leaves.
func (v *VisibilityTracker) KnownBy(subject uint64) []uint64 {
	rev := v.knownBy[subject]
	if len(rev) == 0 {
		return nil
	}
	out := make([]uint64, 0, len(rev))
	for id := range rev {
		out = append(out, id)
	}
	return out
}

// Knows reports whether viewer currently knows about subject.
func (v *VisibilityTracker) Knows(viewer, subject uint64) bool {
	_, ok := v.known[viewer][subject]
	return ok
}

// RemovePlayer purges id from both directions in O(K), where K is the
// number of peers that knew id or that id knew about.
func (v *VisibilityTracker) RemovePlayer(id uint64) {
	for other := range v.known[id] {
		if rev := v.knownBy[other]; rev != nil {
			delete(rev, id)
			if len(rev) == 0 {
				delete(v.knownBy, other)
			}
		}
	}
	delete(v.known, id)

	for viewer := range v.knownBy[id] {
		if set := v.known[viewer]; set != nil {
			delete(set, id)
			if len(set) == 0 {
				delete(v.known, viewer)
			}
		}
	}
	delete(v.knownBy, id)
}
