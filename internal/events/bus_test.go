package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/strata/pkg/core"
)

func TestBus_SubscribeAndPublish(t *testing.T) {
	b := New()
	topic := core.Topic{Table: "users", Op: core.OpInsert}

	var received []core.Event
	b.Subscribe(topic, func(e core.Event) error {
		received = append(received, e)
		return nil
	})

	err := b.Publish(core.Event{Topic: topic, Payload: core.Row{"email": "a@b.com"}})
	require.NoError(t, err)

	require.Len(t, received, 1)
	assert.Equal(t, "users:insert", received[0].Topic.String())
	assert.Equal(t, "a@b.com", received[0].Payload["email"])
}

func TestBus_FIFOPerTopic(t *testing.T) {
	b := New()
	topic := core.Topic{Table: "users", Op: core.OpUpdate}

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		b.Subscribe(topic, func(core.Event) error {
			order = append(order, i)
			return nil
		})
	}

	require.NoError(t, b.Publish(core.Event{Topic: topic}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestBus_TopicIsolation(t *testing.T) {
	b := New()

	insertCalls := 0
	deleteCalls := 0
	b.Subscribe(core.Topic{Table: "users", Op: core.OpInsert}, func(core.Event) error {
		insertCalls++
		return nil
	})
	b.Subscribe(core.Topic{Table: "users", Op: core.OpDelete}, func(core.Event) error {
		deleteCalls++
		return nil
	})

	require.NoError(t, b.Publish(core.Event{Topic: core.Topic{Table: "users", Op: core.OpInsert}}))
	assert.Equal(t, 1, insertCalls)
	assert.Equal(t, 0, deleteCalls)

	// Same operation on a different table reaches neither.
	require.NoError(t, b.Publish(core.Event{Topic: core.Topic{Table: "posts", Op: core.OpInsert}}))
	assert.Equal(t, 1, insertCalls)
}

func TestBus_SubscriberErrorPropagates(t *testing.T) {
	b := New()
	topic := core.TopicCommit

	boom := errors.New("subscriber failed")
	b.Subscribe(topic, func(core.Event) error { return boom })

	laterCalled := false
	b.Subscribe(topic, func(core.Event) error {
		laterCalled = true
		return nil
	})

	err := b.Publish(core.Event{Topic: topic})
	require.ErrorIs(t, err, boom)

	// Delivery stops at the failing handler.
	assert.False(t, laterCalled)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := New()
	topic := core.Topic{Table: "users", Op: core.OpInsert}

	calls := 0
	sub := b.Subscribe(topic, func(core.Event) error {
		calls++
		return nil
	})
	require.Equal(t, 1, b.SubscriberCount(topic))

	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount(topic))

	require.NoError(t, b.Publish(core.Event{Topic: topic}))
	assert.Equal(t, 0, calls)

	// Unsubscribing twice is harmless.
	b.Unsubscribe(sub)
}
