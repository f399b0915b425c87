package subscription

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_RegisterContract(t *testing.T) {
	hub := NewHub()
	require.NoError(t, hub.RegisterTopic(Topic(1)))
	require.Error(t, hub.RegisterTopic(Topic(1)))

	subscriber := NewSubscriber()
	require.NoError(t, hub.Subscribe(subscriber, Topic(1)))

	require.NoError(t, hub.RegisterContract(context.Background(), 1, "0xabc"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	registration, err := subscriber.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), registration.ChainID)
	assert.Equal(t, "0xabc", registration.Address)
}

func TestHub_UnknownTopic(t *testing.T) {
	hub := NewHub()
	assert.Error(t, hub.RegisterContract(context.Background(), 56, "0xabc"))
	assert.Error(t, hub.Subscribe(NewSubscriber(), Topic(56)))
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub()
	require.NoError(t, hub.RegisterTopic(Topic(1)))

	subscriber := NewSubscriber()
	require.NoError(t, hub.Subscribe(subscriber, Topic(1)))
	hub.Unsubscribe(subscriber)

	require.NoError(t, hub.RegisterContract(context.Background(), 1, "0xabc"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := subscriber.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type fakeWriter struct {
	lock     sync.Mutex
	failures int
	messages []kafka.Message
	attempts int
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.attempts++
	if w.attempts <= w.failures {
		return errors.New("leader not available")
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func TestKafkaRegistrar(t *testing.T) {
	writer := &fakeWriter{failures: 1}
	registrar := NewKafkaRegistrar(writer, "pairs")

	require.NoError(t, registrar.RegisterContract(context.Background(), 8453, "0xpair"))
	require.Len(t, writer.messages, 1)
	assert.Equal(t, 2, writer.attempts)

	msg := writer.messages[0]
	assert.Equal(t, "pairs", msg.Topic)
	assert.Equal(t, "8453-0xpair", string(msg.Key))

	var registration Registration
	require.NoError(t, sonic.Unmarshal(msg.Value, &registration))
	assert.Equal(t, uint64(8453), registration.ChainID)
	assert.Equal(t, "0xpair", registration.Address)
}

func TestKafkaRegistrar_ExhaustsRetries(t *testing.T) {
	writer := &fakeWriter{failures: 10}
	err := NewKafkaRegistrar(writer, "pairs").RegisterContract(context.Background(), 1, "0xpair")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
	assert.Equal(t, 3, writer.attempts)
}

func TestMultiRegistrar(t *testing.T) {
	hub := NewHub()
	require.NoError(t, hub.RegisterTopic(Topic(1)))
	writer := &fakeWriter{}

	registrar := MultiRegistrar{hub, NewKafkaRegistrar(writer, "pairs")}
	require.NoError(t, registrar.RegisterContract(context.Background(), 1, "0xpair"))
	assert.Len(t, writer.messages, 1)

	assert.Error(t, registrar.RegisterContract(context.Background(), 2, "0xpair"))
}
