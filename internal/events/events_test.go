package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lien-Gu/bookrank/internal/model"
)

func TestMemory_RecordsEvents(t *testing.T) {
	t.Parallel()

	pub := NewMemory()
	id, err := pub.Publish(context.Background(), model.TaskEvent{
		TaskID: "t1", PageID: "jiazi", Status: model.TaskStatusSucceeded,
	})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id)

	id, err = pub.Publish(context.Background(), model.TaskEvent{
		TaskID: "t2", PageID: "romance", Status: model.TaskStatusFailed,
	})
	require.NoError(t, err)
	require.Equal(t, "memory-2", id)

	events := pub.Events()
	require.Len(t, events, 2)
	require.Equal(t, "t1", events[0].TaskID)
	require.Equal(t, model.TaskStatusFailed, events[1].Status)
}

func TestNoOp_Publish(t *testing.T) {
	t.Parallel()

	id, err := NoOp{}.Publish(context.Background(), model.TaskEvent{TaskID: "t1"})
	require.NoError(t, err)
	require.Empty(t, id)
	require.NoError(t, NoOp{}.Close())
}
