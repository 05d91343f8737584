package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBroadcaster_PublishSubscribe(t *testing.T) {
	b := NewBroadcaster[string](2)
	first := b.Subscribe()
	second := b.Subscribe()

	b.Publish("depth")

	assert.Equal(t, "depth", <-first)
	assert.Equal(t, "depth", <-second)
}

func TestBroadcaster_DropsSlowConsumer(t *testing.T) {
	b := NewBroadcaster[int](1)
	ch := b.Subscribe()

	b.Publish(1)
	b.Publish(2)

	assert.Equal(t, 1, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected value %d", v)
	default:
	}
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewBroadcaster[int](0)
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	b.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)

	other := b.Subscribe()
	b.Publish(1)
	assert.Equal(t, 1, <-other, "publishing skips removed subscribers")
}
