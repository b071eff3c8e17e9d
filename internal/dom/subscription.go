package dom

// Subscription is the handle for an installed listener. Release removes it;
// calling Release more than once is safe.
type Subscription struct {
	release func()
}

// NewSubscription returns a handle that runs release once.
func NewSubscription(release func()) *Subscription {
	return &Subscription{release: release}
}

// Release removes the listener.
func (s *Subscription) Release() {
	if s == nil || s.release == nil {
		return
	}
	f := s.release
	s.release = nil
	f()
}

// Active reports whether the listener is still installed.
func (s *Subscription) Active() bool {
	return s != nil && s.release != nil
}

// Group collects subscriptions acquired together so they can be released
// together, newest first.
type Group struct {
	subs []*Subscription
}

// Add takes ownership of s.
func (g *Group) Add(s *Subscription) {
	g.subs = append(g.subs, s)
}

// Len is the number of subscriptions held.
func (g *Group) Len() int { return len(g.subs) }

// Release releases every held subscription in reverse order of acquisition
// and empties the group.
func (g *Group) Release() {
	for i := len(g.subs) - 1; i >= 0; i-- {
		g.subs[i].Release()
	}
	g.subs = nil
}

type entry[F any] struct {
	fn       F
	released bool
}

// registry is an ordered listener list that tolerates removal during dispatch.
type registry[F any] struct {
	entries []*entry[F]
}

func (r *registry[F]) add(fn F) *Subscription {
	e := &entry[F]{fn: fn}
	r.entries = append(r.entries, e)
	return NewSubscription(func() {
		e.released = true
		for i, x := range r.entries {
			if x == e {
				r.entries = append(r.entries[:i], r.entries[i+1:]...)
				return
			}
		}
	})
}

// newestFirst returns a snapshot of the live entries, most recent first.
func (r *registry[F]) newestFirst() []*entry[F] {
	out := make([]*entry[F], 0, len(r.entries))
	for i := len(r.entries) - 1; i >= 0; i-- {
		out = append(out, r.entries[i])
	}
	return out
}

func (r *registry[F]) len() int { return len(r.entries) }
