package cdp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mafredri/cdp/devtool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activitylog/pkg/domain"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.ActivityEvent) error { return nil }

func TestSelectTarget(t *testing.T) {
	targets := []*devtool.Target{
		{ID: "p1", Type: devtool.Page, URL: "https://a/"},
		{ID: "p2", Type: devtool.Page, URL: "https://b/"},
		{ID: "bg", Type: devtool.BackgroundPage, URL: "chrome-extension://ext/bg.html"},
	}

	got, err := SelectTarget(targets, "p2")
	require.NoError(t, err)
	assert.Equal(t, "p2", got.ID)

	got, err = SelectTarget(targets, "")
	require.NoError(t, err)
	assert.Equal(t, "bg", got.ID)

	got, err = SelectTarget(targets[:2], "")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)

	_, err = SelectTarget(targets, "missing")
	assert.ErrorIs(t, err, ErrNoTarget)
	_, err = SelectTarget(nil, "")
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestAttachUnknownTarget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"p1","type":"page","url":"https://a/","webSocketDebuggerUrl":"ws://127.0.0.1:1/devtools/page/p1"}]`))
	}))
	defer srv.Close()

	m := New(srv.URL, nopPublisher{}, nil)
	targets, err := m.ListTargets(context.Background())
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "https://a/", targets[0].URL)

	err = m.Attach(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNoTarget)
	assert.ErrorIs(t, m.Detach(), ErrNotAttached)
	assert.Empty(t, m.ExtensionID())
}
