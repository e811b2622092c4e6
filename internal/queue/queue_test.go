package queue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	event := NewEvent(DraftCreated, "corr-1", map[string]interface{}{"id": "d1"})

	assert.Len(t, event.ID, 36)
	assert.Equal(t, "draft.created", event.Type)
	assert.Equal(t, "corr-1", event.CorrelationID)
	assert.False(t, event.Timestamp.IsZero())

	b, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"correlation_id":"corr-1"`)
	assert.Contains(t, string(b), `"data":{"id":"d1"}`)

	other := NewEvent(DraftCreated, "", nil)
	assert.NotEqual(t, event.ID, other.ID)
	b, err = json.Marshal(other)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "correlation_id")
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.True(t, p.IsConnected())
	assert.NoError(t, p.Publish(context.Background(), NewEvent(NotificationGenerated, "", nil)))
}
