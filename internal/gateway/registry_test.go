package gateway

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeSink records pushed messages; it can be told to refuse pushes.
type fakeSink struct {
	mu     sync.Mutex
	msgs   [][]byte
	refuse bool
}

func (f *fakeSink) Push(msg []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuse {
		return false
	}
	f.msgs = append(f.msgs, msg)
	return true
}

func (f *fakeSink) received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func TestRouteDeliversToAllSubscribersOfUser(t *testing.T) {
	r := NewRegistry()
	c1, c2, c3 := &fakeSink{}, &fakeSink{}, &fakeSink{}

	r.Subscribe("U1", c1)
	r.Subscribe("U1", c2)
	r.Subscribe("U2", c3)

	delivered := r.Route("U1", []byte(`{"type":"Committed"}`))

	assert.Equal(t, 2, delivered)
	assert.Equal(t, 1, c1.received())
	assert.Equal(t, 1, c2.received())
	assert.Equal(t, 0, c3.received(), "other users must never receive the event")
}

func TestRouteUnknownUserDropsEvent(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.Route("nobody", []byte("x")))
}

func TestSubscribeIsIdempotent(t *testing.T) {
	r := NewRegistry()
	c := &fakeSink{}

	r.Subscribe("U1", c)
	r.Subscribe("U1", c)

	assert.Equal(t, 1, r.Route("U1", []byte("x")))
	assert.Equal(t, 1, c.received())
}

func TestResubscribeMovesConnection(t *testing.T) {
	r := NewRegistry()
	c := &fakeSink{}

	r.Subscribe("U1", c)
	r.Subscribe("U2", c)

	assert.Equal(t, 0, r.Route("U1", []byte("x")))
	assert.Equal(t, 1, r.Route("U2", []byte("x")))
}

func TestLateSubscriberDoesNotReceiveEarlierEvent(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, 0, r.Route("U1", []byte("early")))

	c := &fakeSink{}
	r.Subscribe("U1", c)

	assert.Equal(t, 0, c.received(), "routing is push-only; nothing is replayed on subscribe")
}

func TestUnsubscribedConnectionReceivesNothing(t *testing.T) {
	r := NewRegistry()
	c1, c2 := &fakeSink{}, &fakeSink{}
	r.Subscribe("U1", c1)
	r.Subscribe("U1", c2)

	r.Unsubscribe(c1)

	assert.Equal(t, 1, r.Route("U1", []byte("x")))
	assert.Equal(t, 0, c1.received())
	assert.Equal(t, 1, c2.received())
}

func TestUnsubscribeUnknownConnectionIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Unsubscribe(&fakeSink{})
}

func TestFailedPushDoesNotBlockSiblings(t *testing.T) {
	r := NewRegistry()
	bad := &fakeSink{refuse: true}
	good := &fakeSink{}
	r.Subscribe("U1", bad)
	r.Subscribe("U1", good)

	delivered := r.Route("U1", []byte("x"))

	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, good.received())
}

func TestConcurrentSubscribeAndRoute(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c := &fakeSink{}
			user := fmt.Sprintf("U%d", i%5)
			r.Subscribe(user, c)
			r.Unsubscribe(c)
		}(i)
		go func(i int) {
			defer wg.Done()
			r.Route(fmt.Sprintf("U%d", i%5), []byte("x"))
		}(i)
	}
	wg.Wait()
}
