package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	inserted []Event
	fail     error
}

func (m *memStore) InsertEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error) {
	if m.fail != nil {
		return Event{}, m.fail
	}
	ev := Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload, OccurredAt: time.Now()}
	m.inserted = append(m.inserted, ev)
	return ev, nil
}

type recordingNotifier struct {
	seen []Event
	fail error
}

func (n *recordingNotifier) Notify(_ context.Context, ev Event) error {
	n.seen = append(n.seen, ev)
	return n.fail
}

func TestEmitPersistsAndFansOut(t *testing.T) {
	store := &memStore{}
	first := &recordingNotifier{}
	second := &recordingNotifier{}
	bus := &Bus{Store: store, Notifiers: []Notifier{first, second}}

	aggID := uuid.New()
	ev, err := bus.Emit(context.Background(), TopicOrderCreated, aggID, map[string]any{"total": "22.68"})
	require.NoError(t, err)
	require.Equal(t, TopicOrderCreated, ev.Topic)
	require.Equal(t, aggID, ev.AggregateID)
	require.Len(t, store.inserted, 1)
	require.Len(t, first.seen, 1)
	require.Len(t, second.seen, 1)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	require.Equal(t, "22.68", payload["total"])
}

func TestEmitNotifierFailureDoesNotLoseEvent(t *testing.T) {
	store := &memStore{}
	broken := &recordingNotifier{fail: errors.New("telegram down")}
	healthy := &recordingNotifier{}
	bus := &Bus{Store: store, Notifiers: []Notifier{broken, healthy}}

	ev, err := bus.Emit(context.Background(), TopicOrderStatusChanged, uuid.New(), nil)
	require.Error(t, err)
	require.NotEqual(t, uuid.Nil, ev.ID)
	require.Len(t, store.inserted, 1)
	// the failing notifier does not stop later ones
	require.Len(t, healthy.seen, 1)
}

func TestEmitStoreFailure(t *testing.T) {
	bus := &Bus{Store: &memStore{fail: errors.New("pool exhausted")}}
	_, err := bus.Emit(context.Background(), TopicOrderCreated, uuid.New(), nil)
	require.Error(t, err)
}

func TestEmitValidation(t *testing.T) {
	bus := &Bus{Store: &memStore{}}

	_, err := bus.Emit(context.Background(), "  ", uuid.New(), nil)
	require.Error(t, err)

	_, err = bus.Emit(context.Background(), TopicOrderCreated, uuid.Nil, nil)
	require.Error(t, err)

	_, err = bus.Emit(context.Background(), TopicOrderCreated, uuid.New(), []byte("{not json"))
	require.Error(t, err)
}

func TestEmitPayloadEncodings(t *testing.T) {
	store := &memStore{}
	bus := &Bus{Store: store}

	ev, err := bus.Emit(context.Background(), TopicOrderCreated, uuid.New(), nil)
	require.NoError(t, err)
	require.JSONEq(t, "{}", string(ev.Payload))

	ev, err = bus.Emit(context.Background(), TopicOrderCreated, uuid.New(), json.RawMessage(`{"items":2}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"items":2}`, string(ev.Payload))

	ev, err = bus.Emit(context.Background(), TopicOrderCreated, uuid.New(), `{"status":"cooking"}`)
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"cooking"}`, string(ev.Payload))
}
