package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activitylog/internal/config"
	"activitylog/pkg/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	c := config.NewConfig()
	c.Sqlite.Dsn = filepath.Join(t.TempDir(), "test.sqlite3")
	s, err := Open(c, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := domain.ActivityEvent{
		ExtensionID:  "a",
		ActivityType: domain.ActivityWebRequest,
		APICall:      "webRequest.onBeforeSendHeaders",
		Args:         `["https://x.com"]`,
		PageURL:      "https://x.com",
		Time:         200,
		Other:        &domain.ActivityOther{WebRequest: `{"method":"GET"}`, Extra: "e"},
	}
	second := domain.ActivityEvent{ExtensionID: "a", ActivityType: domain.ActivityAPICall, APICall: "tabs.query", Time: 100}
	foreign := domain.ActivityEvent{ExtensionID: "b", ActivityType: domain.ActivityAPICall, APICall: "tabs.query", Time: 50}

	for _, ev := range []domain.ActivityEvent{first, second, foreign} {
		id, err := s.Save(ctx, ev)
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	}

	got, err := s.ListByExtension(ctx, "a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "tabs.query", got[0].APICall)
	assert.Equal(t, "webRequest.onBeforeSendHeaders", got[1].APICall)
	require.NotNil(t, got[1].Other)
	assert.Equal(t, `{"method":"GET"}`, got[1].Other.WebRequest)
	assert.Equal(t, "e", got[1].Other.Extra)
	assert.Nil(t, got[0].Other)
	assert.NotEmpty(t, got[0].ActivityID)
}

func TestDeletes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var ids []domain.ActivityID
	for i := 0; i < 3; i++ {
		id, err := s.Save(ctx, domain.ActivityEvent{ExtensionID: "a", APICall: "x", Time: int64(i)})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	_, err := s.Save(ctx, domain.ActivityEvent{ExtensionID: "b", APICall: "y"})
	require.NoError(t, err)

	n, err := s.DeleteActivities(ctx, ids[:1])
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.DeleteActivities(ctx, []domain.ActivityID{"not-a-number"})
	assert.Error(t, err)

	n, err = s.DeleteByExtension(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := s.ListByExtension(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestListenerArchivesEvents(t *testing.T) {
	s := openTestStore(t)
	listen := s.Listener(time.Second)
	listen(domain.ActivityEvent{ExtensionID: "a", APICall: "runtime.getURL"})

	got, err := s.ListByExtension(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "runtime.getURL", got[0].APICall)
}
