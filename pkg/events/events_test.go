package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bloodbank-api/pkg/jobs"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.msgs)
}

func TestKafkaPublisherEncodesEvents(t *testing.T) {
	writer := &fakeWriter{}
	pub := NewKafkaPublisher(writer)
	occurred := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	err := pub.Publish(context.Background(), Event{ID: "evt-1", Type: TypeUnitIssued, SubjectID: "unit-1", OccurredAt: occurred})
	require.NoError(t, err)
	require.Len(t, writer.msgs, 1)

	msg := writer.msgs[0]
	assert.Equal(t, []byte("unit-1"), msg.Key)
	assert.Equal(t, TypeUnitIssued, string(msg.Headers[0].Value))
	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "evt-1", decoded.ID)
}

func TestKafkaPublisherPropagatesWriteError(t *testing.T) {
	pub := NewKafkaPublisher(&fakeWriter{err: errors.New("leader not available")})
	err := pub.Publish(context.Background(), Event{ID: "evt-1"})
	assert.Error(t, err)
}

func TestAsyncPublisherDeliversThroughQueue(t *testing.T) {
	writer := &fakeWriter{}
	pub := NewAsyncPublisher(NewKafkaPublisher(writer), jobs.QueueConfig{Workers: 1})
	pub.Start(context.Background())

	require.NoError(t, pub.Publish(context.Background(),
		Event{ID: "evt-1", Type: TypeUnitIssued, SubjectID: "unit-1"},
		Event{ID: "evt-2", Type: TypeRequestFulfilled, SubjectID: "req-1"},
	))
	pub.Stop()

	assert.Equal(t, 2, writer.count())
}
