package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillPublisherDeliversEvent(t *testing.T) {
	pubSub := NewGoChannel(NewZapAdapter())
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(context.Background(), "hrhub.approval.events")
	require.NoError(t, err)

	pub := NewWatermillPublisher(pubSub, "hrhub.approval.events")
	pub.Publish(context.Background(), Event{
		Type:       DocumentApproved,
		DocumentID: 42,
		ActorID:    7,
	})

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, string(DocumentApproved), msg.Metadata.Get(TypeMetadataKey))
		assert.Equal(t, "42", msg.Metadata.Get(KeyMetadataKey))

		var got Event
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, uint(42), got.DocumentID)
		assert.Equal(t, uint(7), got.ActorID)
		assert.False(t, got.OccurredAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestPublishAfterCloseDoesNotPanic(t *testing.T) {
	pubSub := NewGoChannel(NewZapAdapter())
	pub := NewWatermillPublisher(pubSub, "topic")
	require.NoError(t, pub.Close())

	assert.NotPanics(t, func() {
		pub.Publish(context.Background(), Event{Type: DocumentSubmitted, DocumentID: 1})
	})
}
