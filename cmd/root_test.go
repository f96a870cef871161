package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lien-Gu/bookrank/internal/catalog"
	"github.com/lien-Gu/bookrank/internal/config"
	"github.com/lien-Gu/bookrank/internal/crawl"
	"github.com/lien-Gu/bookrank/internal/store"
	"github.com/lien-Gu/bookrank/internal/store/memory"
)

type mockApp struct {
	cat    *catalog.Catalog
	stores store.Provider
	runner *crawl.Runner
	closed bool
}

func (m *mockApp) Close()                    { m.closed = true }
func (m *mockApp) Config() config.Config     { return config.Config{} }
func (m *mockApp) Logger() *zap.Logger       { return zap.NewNop() }
func (m *mockApp) Catalog() *catalog.Catalog { return m.cat }
func (m *mockApp) Stores() store.Provider    { return m.stores }
func (m *mockApp) Runner() *crawl.Runner     { return m.runner }

func newMockApp(t *testing.T) *mockApp {
	t.Helper()
	cat, err := catalog.Parse([]byte(`{
		"site": "https://www.jjwxc.net",
		"pages": [
			{"id": "jiazi", "name": "夹子", "url": "https://app.jjwxc.net/bookstore/favObservationByDate", "kind": "json", "schedule": "hourly"}
		]
	}`))
	require.NoError(t, err)
	provider := memory.NewProvider()
	return &mockApp{cat: cat, stores: provider}
}

func TestPagesCommand(t *testing.T) {
	mock := newMockApp(t)
	orig := newApp
	newApp = func(context.Context) (App, error) { return mock, nil }
	defer func() { newApp = orig }()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"pages"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	require.Contains(t, out.String(), "jiazi")
	require.Contains(t, out.String(), "hourly")
	require.True(t, mock.closed)
}

func TestCrawlCommandUnknownPage(t *testing.T) {
	mock := newMockApp(t)
	orig := newApp
	newApp = func(context.Context) (App, error) { return mock, nil }
	defer func() { newApp = orig }()

	root := newRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"crawl", "--page", "ghost"})

	require.Error(t, root.ExecuteContext(context.Background()))
}
