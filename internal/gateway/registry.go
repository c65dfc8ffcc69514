package gateway

import "sync"

// Sink is one live client connection the registry can push to. Push must
// not block; it reports whether the message was accepted.
type Sink interface {
	Push(msg []byte) bool
}

// Registry is the ephemeral mapping of user ids to their live connections.
// It is never persisted; after a restart clients must re-subscribe. The raw
// map stays encapsulated behind Subscribe/Unsubscribe/Route so locking
// cannot be bypassed.
type Registry struct {
	mu    sync.RWMutex
	subs  map[string]map[Sink]struct{}
	owner map[Sink]string
}

func NewRegistry() *Registry {
	return &Registry{
		subs:  make(map[string]map[Sink]struct{}),
		owner: make(map[Sink]string),
	}
}

// Subscribe registers the connection under userID. Re-subscribing the same
// connection is a no-op; subscribing it under a different user moves it.
func (r *Registry) Subscribe(userID string, c Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.owner[c]; ok {
		if prev == userID {
			return
		}
		r.removeLocked(prev, c)
	}
	set, ok := r.subs[userID]
	if !ok {
		set = make(map[Sink]struct{})
		r.subs[userID] = set
	}
	set[c] = struct{}{}
	r.owner[c] = userID
}

// Unsubscribe removes the connection from whatever user set it belongs to.
// Called on connection close; unknown connections are ignored.
func (r *Registry) Unsubscribe(c Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.owner[c]
	if !ok {
		return
	}
	r.removeLocked(userID, c)
	delete(r.owner, c)
}

func (r *Registry) removeLocked(userID string, c Sink) {
	set := r.subs[userID]
	delete(set, c)
	if len(set) == 0 {
		delete(r.subs, userID)
	}
}

// Route pushes msg to every connection currently subscribed under userID and
// returns how many accepted it. Users with no live connection lose the
// event: delivery is best-effort, at-most-once. A connection that refuses
// the push does not prevent delivery to its siblings.
func (r *Registry) Route(userID string, msg []byte) int {
	r.mu.RLock()
	sinks := make([]Sink, 0, len(r.subs[userID]))
	for c := range r.subs[userID] {
		sinks = append(sinks, c)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, c := range sinks {
		if c.Push(msg) {
			delivered++
		}
	}
	return delivered
}
