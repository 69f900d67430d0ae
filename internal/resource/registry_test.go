package resource

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dbshell/dbshell/internal/bus"
)

type fakeResource struct {
	received []bus.Event
	name     string
}

func (f *fakeResource) Handle(e bus.Event) {
	f.received = append(f.received, e)
}

func TestHandleResourceEventAddsAppend(t *testing.T) {
	r := New()
	a := &fakeResource{name: "a"}
	b := &fakeResource{name: "b"}

	r.HandleResourceEvent(bus.Event{Kind: bus.OnResource, ResourceCmd: bus.ResourceCommand{Add: a}})
	r.HandleResourceEvent(bus.Event{Kind: bus.OnResource, ResourceCmd: bus.ResourceCommand{Add: b}})

	require.Len(t, r.Resources(), 2)
	require.Same(t, a, r.Resources()[0])
	require.Same(t, b, r.Resources()[1])
}

func TestHandleResourceEventUpdateReplacesSlotZero(t *testing.T) {
	r := New()
	a := &fakeResource{name: "a"}
	b := &fakeResource{name: "b"}
	c := &fakeResource{name: "c"}

	r.HandleResourceEvent(bus.Event{Kind: bus.OnResource, ResourceCmd: bus.ResourceCommand{Add: a}})
	r.HandleResourceEvent(bus.Event{Kind: bus.OnResource, ResourceCmd: bus.ResourceCommand{Add: b}})
	r.HandleResourceEvent(bus.Event{Kind: bus.OnResource, ResourceCmd: bus.ResourceCommand{Update: c}})

	require.Len(t, r.Resources(), 2)
	require.Same(t, c, r.Resources()[0])
	require.Same(t, b, r.Resources()[1])
}

func TestBroadcastReachesEveryResource(t *testing.T) {
	r := New()
	a := &fakeResource{}
	b := &fakeResource{}
	r.HandleResourceEvent(bus.Event{Kind: bus.OnResource, ResourceCmd: bus.ResourceCommand{Add: a}})
	r.HandleResourceEvent(bus.Event{Kind: bus.OnResource, ResourceCmd: bus.ResourceCommand{Add: b}})

	r.Broadcast(bus.Event{Kind: bus.OnMessage, Text: "hello"})

	require.Len(t, a.received, 1)
	require.Len(t, b.received, 1)
	require.Equal(t, "hello", a.received[0].Text)
}
