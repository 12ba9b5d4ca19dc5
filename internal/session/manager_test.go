package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activitylog/internal/source"
)

func TestManagerLifecycle(t *testing.T) {
	hub := source.NewHub(4, nil)
	m := NewManager(nil)

	a := m.Create("ext-a", hub)
	b := m.Create("ext-b", hub)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, m.List(), 2)

	got, ok := m.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, a, got)

	a.Buffer.Start()
	b.Buffer.Start()
	assert.Equal(t, 2, hub.ListenerCount())

	a.Buffer.SetSearchTerm("tabs")
	a.Buffer.Clear()
	select {
	case <-a.Changed():
	default:
		t.Fatal("expected change notification")
	}
	select {
	case <-b.Changed():
		t.Fatal("unexpected change notification")
	default:
	}

	assert.True(t, m.Delete(a.ID))
	assert.False(t, m.Delete(a.ID))
	assert.Equal(t, 1, hub.ListenerCount())

	m.CloseAll()
	assert.Empty(t, m.List())
	assert.Equal(t, 0, hub.ListenerCount())
}
