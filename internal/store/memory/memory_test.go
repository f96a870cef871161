package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lien-Gu/bookrank/internal/model"
	"github.com/lien-Gu/bookrank/internal/store"
)

func TestBookStore_UpsertPreservesFirstSeen(t *testing.T) {
	t.Parallel()

	p := NewProvider()
	ctx := context.Background()
	first := time.Unix(1700000000, 0).UTC()
	later := first.Add(time.Hour)

	require.NoError(t, p.Books().UpsertBook(ctx, model.Book{
		ID: "1", Title: "一", FirstSeen: first, UpdatedAt: first,
	}))
	require.NoError(t, p.Books().UpsertBook(ctx, model.Book{
		ID: "1", Title: "一（改）", FirstSeen: later, UpdatedAt: later,
	}))

	b, err := p.Books().GetBook(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, "一（改）", b.Title)
	require.Equal(t, first, b.FirstSeen)
}

func TestBookStore_TrendAndLatest(t *testing.T) {
	t.Parallel()

	p := NewProvider()
	ctx := context.Background()
	now := time.Now().UTC()

	for i, clicks := range []int64{100, 200, 300} {
		require.NoError(t, p.Books().InsertBookSnapshot(ctx, model.BookSnapshot{
			BookID:     "1",
			Clicks:     clicks,
			CapturedAt: now.Add(time.Duration(i-2) * time.Hour),
		}))
	}
	// Out of the 7-day window.
	require.NoError(t, p.Books().InsertBookSnapshot(ctx, model.BookSnapshot{
		BookID: "1", Clicks: 1, CapturedAt: now.AddDate(0, 0, -30),
	}))

	latest, err := p.Books().LatestBookSnapshot(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, int64(300), latest.Clicks)

	trend, err := p.Books().BookTrend(ctx, "1", 7)
	require.NoError(t, err)
	require.Len(t, trend, 3)
	require.Equal(t, int64(100), trend[0].Clicks)
	require.Equal(t, int64(300), trend[2].Clicks)

	_, err = p.Books().LatestBookSnapshot(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRankingStore_SnapshotFlow(t *testing.T) {
	t.Parallel()

	p := NewProvider()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, p.Rankings().UpsertRanking(ctx, model.Ranking{ID: "jiazi", Name: "夹子"}))
	require.NoError(t, p.Rankings().InsertSnapshot(ctx, model.RankingSnapshot{
		ID: "s1", RankingID: "jiazi", CapturedAt: now.Add(-time.Hour),
		Entries: []model.RankingEntry{{Position: 1, BookID: "1"}},
	}))
	require.NoError(t, p.Rankings().InsertSnapshot(ctx, model.RankingSnapshot{
		ID: "s2", RankingID: "jiazi", CapturedAt: now,
		Entries: []model.RankingEntry{{Position: 1, BookID: "2"}},
	}))

	latest, err := p.Rankings().LatestEntries(ctx, "jiazi")
	require.NoError(t, err)
	require.Equal(t, "s2", latest.ID)
	require.Equal(t, "2", latest.Entries[0].BookID)

	history, err := p.Rankings().SnapshotHistory(ctx, "jiazi", 7)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "s2", history[0].ID)
	require.Nil(t, history[0].Entries)
}

func TestTaskStore_Lifecycle(t *testing.T) {
	t.Parallel()

	p := NewProvider()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, p.Tasks().CreateTask(ctx, model.CrawlTask{
		ID: "t1", PageID: "jiazi", Trigger: model.TriggerManual,
		Status: model.TaskStatusQueued, Submitted: now,
	}))
	require.NoError(t, p.Tasks().StartTask(ctx, "t1"))
	require.NoError(t, p.Tasks().CompleteTask(ctx, "t1",
		model.TaskStatusSucceeded, "", model.TaskCounters{ItemsTotal: 10}))

	task, err := p.Tasks().GetTask(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, model.TaskStatusSucceeded, task.Status)
	require.NotNil(t, task.Started)
	require.NotNil(t, task.Finished)
	require.Equal(t, 10, task.Counters.ItemsTotal)

	failed := model.TaskStatusFailed
	tasks, err := p.Tasks().ListTasks(ctx, &failed, 0, 0)
	require.NoError(t, err)
	require.Empty(t, tasks)

	require.ErrorIs(t, p.Tasks().StartTask(ctx, "ghost"), store.ErrNotFound)
}

func TestResultWindowCaps(t *testing.T) {
	t.Parallel()

	p := NewProvider()
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 120; i++ {
		require.NoError(t, p.Rankings().UpsertRanking(ctx, model.Ranking{
			ID: fmt.Sprintf("r%03d", i), Name: fmt.Sprintf("榜单 %d", i),
		}))
	}
	rankings, err := p.Rankings().ListRankings(ctx, 500, 0)
	require.NoError(t, err)
	require.Len(t, rankings, 100)

	require.NoError(t, p.Rankings().InsertSnapshot(ctx, model.RankingSnapshot{
		ID: "recent", RankingID: "r000", CapturedAt: now.Add(-time.Hour),
	}))
	require.NoError(t, p.Rankings().InsertSnapshot(ctx, model.RankingSnapshot{
		ID: "ancient", RankingID: "r000", CapturedAt: now.AddDate(-2, 0, 0),
	}))
	history, err := p.Rankings().SnapshotHistory(ctx, "r000", 10000)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "recent", history[0].ID)
}
