package crawl

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lien-Gu/bookrank/internal/catalog"
	"github.com/lien-Gu/bookrank/internal/events"
	"github.com/lien-Gu/bookrank/internal/fetch"
	"github.com/lien-Gu/bookrank/internal/model"
	"github.com/lien-Gu/bookrank/internal/store/memory"
)

type fakeFetcher struct {
	body []byte
	err  error
}

func (f *fakeFetcher) Get(context.Context, string) (fetch.Payload, error) {
	if f.err != nil {
		return fetch.Payload{}, f.err
	}
	return fetch.Payload{Body: f.body, StatusCode: 200, FetchedAt: time.Now().UTC()}, nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type seqIDGen struct {
	n int
}

func (g *seqIDGen) NewID() (string, error) {
	g.n++
	return fmt.Sprintf("id-%d", g.n), nil
}

var jiaziPage = catalog.Page{
	ID:       "jiazi",
	Name:     "夹子",
	URL:      "https://app.example.com/rank/jiazi",
	Kind:     catalog.KindJSON,
	Channel:  "jiazi",
	Schedule: "hourly",
}

const rankingPayload = `{"code":"200","data":{"rankName":"夹子","items":[
	{"novelId":1,"novelName":"一","authorName":"a","clicks":"100","favorites":"10"},
	{"novelId":2,"novelName":"二","authorName":"b","clicks":"200","favorites":"20"},
	{"novelName":"破损条目"}]}}`

func newTestRunner(f Fetcher) (*Runner, *memory.Provider, *events.Memory) {
	stores := memory.NewProvider()
	pub := events.NewMemory()
	runner := NewRunner(f, stores, nil, pub,
		&fakeClock{now: time.Unix(1700000000, 0).UTC()}, &seqIDGen{}, nil)
	return runner, stores, pub
}

func TestRun_SucceedsAndPersists(t *testing.T) {
	t.Parallel()

	runner, stores, pub := newTestRunner(&fakeFetcher{body: []byte(rankingPayload)})
	ctx := context.Background()

	task, err := runner.Run(ctx, jiaziPage, model.TriggerSchedule)
	require.NoError(t, err)
	require.Equal(t, model.TaskStatusSucceeded, task.Status)
	require.Equal(t, 2, task.Counters.ItemsTotal)
	require.Equal(t, 1, task.Counters.ItemsFailed)
	require.Positive(t, task.Counters.BytesFetched)

	// Task row reflects the final state.
	stored, err := stores.Tasks().GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, model.TaskStatusSucceeded, stored.Status)
	require.NotNil(t, stored.Finished)

	// Ranking, books, and snapshots landed.
	ranking, err := stores.Rankings().GetRanking(ctx, "jiazi")
	require.NoError(t, err)
	require.Equal(t, "夹子", ranking.Name)

	latest, err := stores.Rankings().LatestEntries(ctx, "jiazi")
	require.NoError(t, err)
	require.Len(t, latest.Entries, 2)
	require.Equal(t, task.ID, latest.TaskID)

	book, err := stores.Books().GetBook(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, "一", book.Title)

	snap, err := stores.Books().LatestBookSnapshot(ctx, "2")
	require.NoError(t, err)
	require.Equal(t, int64(200), snap.Clicks)

	// One completion event.
	evts := pub.Events()
	require.Len(t, evts, 1)
	require.Equal(t, task.ID, evts[0].TaskID)
	require.Equal(t, model.TaskStatusSucceeded, evts[0].Status)
}

func TestRun_FetchFailureMarksTaskFailed(t *testing.T) {
	t.Parallel()

	runner, stores, pub := newTestRunner(&fakeFetcher{err: errors.New("connection refused")})
	ctx := context.Background()

	task, err := runner.Run(ctx, jiaziPage, model.TriggerManual)
	require.Error(t, err)
	require.Equal(t, model.TaskStatusFailed, task.Status)
	require.Contains(t, task.ErrorText, "connection refused")

	stored, err := stores.Tasks().GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, model.TaskStatusFailed, stored.Status)
	require.Equal(t, model.TriggerManual, stored.Trigger)

	evts := pub.Events()
	require.Len(t, evts, 1)
	require.Equal(t, model.TaskStatusFailed, evts[0].Status)
}

func TestRun_EmptyPayloadFails(t *testing.T) {
	t.Parallel()

	runner, stores, _ := newTestRunner(&fakeFetcher{body: []byte(`{"code":"200","data":{"items":[]}}`)})
	ctx := context.Background()

	task, err := runner.Run(ctx, jiaziPage, model.TriggerSchedule)
	require.Error(t, err)
	require.Equal(t, model.TaskStatusFailed, task.Status)

	// No ranking snapshot should exist for a failed parse.
	_, err = stores.Rankings().LatestEntries(ctx, "jiazi")
	require.Error(t, err)
}

func TestRun_HTMLPage(t *testing.T) {
	t.Parallel()

	html := `<html><body><h1 class="rank-title">出版</h1><ul class="rank-list">
		<li><a href="/book/31">甲</a><span class="author">乙</span></li>
	</ul></body></html>`
	runner, stores, _ := newTestRunner(&fakeFetcher{body: []byte(html)})
	page := jiaziPage
	page.ID = "paperback"
	page.Kind = catalog.KindHTML

	task, err := runner.Run(context.Background(), page, model.TriggerSchedule)
	require.NoError(t, err)
	require.Equal(t, model.TaskStatusSucceeded, task.Status)

	latest, err := stores.Rankings().LatestEntries(context.Background(), "paperback")
	require.NoError(t, err)
	require.Len(t, latest.Entries, 1)
	require.Equal(t, "31", latest.Entries[0].BookID)
}

type failingArchive struct{}

func (failingArchive) Put(context.Context, string, []byte) (string, error) {
	return "", errors.New("bucket unavailable")
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, model.TaskEvent) (string, error) {
	return "", errors.New("topic unavailable")
}

func (failingPublisher) Close() error { return nil }

func TestRun_ArchiveFailureDoesNotFailTask(t *testing.T) {
	t.Parallel()

	stores := memory.NewProvider()
	pub := events.NewMemory()
	runner := NewRunner(&fakeFetcher{body: []byte(rankingPayload)}, stores, failingArchive{}, pub,
		&fakeClock{now: time.Unix(1700000000, 0).UTC()}, &seqIDGen{}, nil)
	ctx := context.Background()

	task, err := runner.Run(ctx, jiaziPage, model.TriggerSchedule)
	require.NoError(t, err)
	require.Equal(t, model.TaskStatusSucceeded, task.Status)
	require.Empty(t, task.ErrorText)

	// Data still landed despite the archive failure.
	latest, err := stores.Rankings().LatestEntries(ctx, "jiazi")
	require.NoError(t, err)
	require.Len(t, latest.Entries, 2)

	evts := pub.Events()
	require.Len(t, evts, 1)
	require.Equal(t, model.TaskStatusSucceeded, evts[0].Status)
}

func TestRun_PublishFailureDoesNotFailTask(t *testing.T) {
	t.Parallel()

	stores := memory.NewProvider()
	runner := NewRunner(&fakeFetcher{body: []byte(rankingPayload)}, stores, nil, failingPublisher{},
		&fakeClock{now: time.Unix(1700000000, 0).UTC()}, &seqIDGen{}, nil)
	ctx := context.Background()

	task, err := runner.Run(ctx, jiaziPage, model.TriggerSchedule)
	require.NoError(t, err)
	require.Equal(t, model.TaskStatusSucceeded, task.Status)

	stored, err := stores.Tasks().GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, model.TaskStatusSucceeded, stored.Status)
}
