package event

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	msgs []amqp.Publishing
	err  error
}

func (p *recordingPublisher) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

func TestAMQPForwarder_Forward(t *testing.T) {
	pub := &recordingPublisher{}
	f := NewAMQPForwarder(pub, "ecoforum.events")

	actor := int64(7)
	e := New(TypeEntityRestored, map[string]any{"table": "articles", "id": 42}, &actor, time.Now())
	require.NoError(t, f.Forward(context.Background(), e))

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "ecoforum.events", pub.keys[0])

	msg := pub.msgs[0]
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, e.ID, msg.MessageId)
	assert.Equal(t, string(TypeEntityRestored), msg.Type)

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, e.ID, decoded.ID)
	require.NotNil(t, decoded.ActorID)
	assert.Equal(t, int64(7), *decoded.ActorID)
}

func TestAMQPForwarder_ForwardError(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("channel closed")}
	f := NewAMQPForwarder(pub, "q")

	err := f.Forward(context.Background(), New(TypeReportFiled, nil, nil, time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")
}

func TestAMQPForwarder_RunStopsOnCancel(t *testing.T) {
	pub := &recordingPublisher{}
	f := NewAMQPForwarder(pub, "q")
	bus := NewBus()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.Run(ctx, bus)
		close(done)
	}()

	require.Eventually(t, func() bool {
		bus.Publish(New(TypeCommentDeleted, nil, nil, time.Now()))
		return pub.count() > 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forwarder did not stop")
	}
	assert.NoError(t, f.Close())
}
