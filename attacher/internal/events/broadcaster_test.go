package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBroadcasterDeliversInSubscriptionOrder(t *testing.T) {
	b := NewBroadcaster[int]()
	var got []string

	b.Subscribe(func(v int) { got = append(got, "first") })
	b.Subscribe(func(v int) { got = append(got, "second") })

	b.Publish(1)
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestBroadcasterUnsubscribe(t *testing.T) {
	b := NewBroadcaster[string]()
	var received []string

	unsubscribe := b.Subscribe(func(v string) { received = append(received, v) })
	b.Publish("a")
	unsubscribe()
	unsubscribe()
	b.Publish("b")

	assert.Equal(t, []string{"a"}, received)
	assert.Equal(t, 0, b.Len())
}

func TestBroadcasterListenerMayUnsubscribeDuringPublish(t *testing.T) {
	b := NewBroadcaster[int]()
	calls := 0

	var unsubscribe func()
	unsubscribe = b.Subscribe(func(int) {
		calls++
		unsubscribe()
	})

	b.Publish(1)
	b.Publish(2)
	assert.Equal(t, 1, calls)
}
