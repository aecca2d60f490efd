package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casewright/petition-service/internal/domain"
)

type fakeWriter struct {
	messages []kafka.Message
	writeErr error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.writeErr != nil {
		return w.writeErr
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type countingRecorder struct {
	success int
	failure int
}

func (r *countingRecorder) RecordEventPublished(outcome string) {
	if outcome == "success" {
		r.success++
	} else {
		r.failure++
	}
}

func newTestPublisher(writer messageWriter, recorder EventRecorder) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  writer,
		logger:  zerolog.Nop(),
		metrics: recorder,
	}
}

func TestPublishCaseEvent(t *testing.T) {
	writer := &fakeWriter{}
	recorder := &countingRecorder{}
	pub := newTestPublisher(writer, recorder)

	event, err := domain.NewCaseEvent(domain.EventTypeCaseCompleted, "jane-doe-1756380000", domain.CaseCompletedPayload{
		CaseID:        "jane-doe-1756380000",
		DocumentCount: 8,
	})
	require.NoError(t, err)

	require.NoError(t, pub.PublishCaseEvent(context.Background(), event))

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, []byte("jane-doe-1756380000"), msg.Key)

	var got domain.CaseEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, domain.EventTypeCaseCompleted, got.EventType)
	assert.Equal(t, "jane-doe-1756380000", got.CaseID)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte(domain.EventTypeCaseCompleted), msg.Headers[0].Value)

	assert.Equal(t, 1, recorder.success)
	assert.Equal(t, 0, recorder.failure)
}

func TestPublishCaseEvent_WriteError(t *testing.T) {
	writer := &fakeWriter{writeErr: errors.New("broker unavailable")}
	recorder := &countingRecorder{}
	pub := newTestPublisher(writer, recorder)

	event, err := domain.NewCaseEvent(domain.EventTypeCaseFailed, "case-1", domain.CaseFailedPayload{CaseID: "case-1"})
	require.NoError(t, err)

	err = pub.PublishCaseEvent(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish case event")
	assert.Equal(t, 1, recorder.failure)
}

func TestPublishCaseEvent_NilEvent(t *testing.T) {
	pub := newTestPublisher(&fakeWriter{}, nil)
	require.Error(t, pub.PublishCaseEvent(context.Background(), nil))
}

func TestPublisherClose(t *testing.T) {
	writer := &fakeWriter{}
	pub := newTestPublisher(writer, nil)
	require.NoError(t, pub.Close())
	assert.True(t, writer.closed)
}

func TestNopPublisher(t *testing.T) {
	var pub NopPublisher
	assert.NoError(t, pub.PublishCaseEvent(context.Background(), nil))
	assert.NoError(t, pub.Close())
}
