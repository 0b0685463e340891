package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryBus_DeliversToEverySubscriber(t *testing.T) {
	bus := NewBus()

	first, unsubFirst := bus.Subscribe()
	defer unsubFirst()
	second, unsubSecond := bus.Subscribe()
	defer unsubSecond()

	e := New(TypeReportFiled, map[string]any{"report_id": 1}, nil, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	bus.Publish(e)

	for _, ch := range []<-chan Event{first, second} {
		select {
		case got := <-ch:
			assert.Equal(t, e.ID, got.ID)
			assert.Equal(t, TypeReportFiled, got.Type)
			assert.Equal(t, "2026-01-02T03:04:05Z", got.Timestamp)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestInMemoryBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe()

	unsubscribe()
	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok)

	bus.Publish(New(TypeCommentPosted, nil, nil, time.Now()))
}

func TestInMemoryBus_DropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for range subscriberBuffer + 10 {
		bus.Publish(New(TypeCommentPosted, nil, nil, time.Now()))
	}

	require.Len(t, ch, subscriberBuffer)
}
