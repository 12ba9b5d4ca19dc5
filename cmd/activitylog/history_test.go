package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activitylog/internal/config"
	"activitylog/internal/match"
	"activitylog/internal/storage"
	"activitylog/pkg/domain"
)

func TestParseSpec(t *testing.T) {
	spec, err := parseSpec([]string{"apiCall:prefix:tabs."}, []string{"pageUrl=*.com*"}, []string{"activityType:exact:dom_event"})
	require.NoError(t, err)
	assert.Equal(t, match.FieldAPICall, spec.AllOf[0].Field)
	assert.Equal(t, match.ModeGlob, spec.AnyOf[0].Mode)
	assert.Equal(t, "dom_event", spec.NoneOf[0].Pattern)

	_, err = parseSpec([]string{"nope"}, nil, nil)
	assert.Error(t, err)
}

func newTestGlobalState(t *testing.T) (*globalState, *bytes.Buffer) {
	t.Helper()
	color.NoColor = true
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "activitylog.yaml")
	yaml := "sqlite:\n  dsn: " + filepath.Join(dir, "db.sqlite3") + "\nlog:\n  writer: []\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o600))

	var out bytes.Buffer
	gs := newGlobalState(context.Background())
	gs.stdOut = &out
	gs.stdErr = &out
	gs.flags.configPath = cfgPath
	return gs, &out
}

func seedArchive(t *testing.T, gs *globalState) {
	t.Helper()
	require.NoError(t, gs.init())
	store, err := storage.Open(gs.cfg, nil)
	require.NoError(t, err)
	defer store.Close()
	for _, ev := range []domain.ActivityEvent{
		{ExtensionID: "ext", ActivityType: domain.ActivityAPICall, APICall: "tabs.query", PageURL: "https://a.com", Time: 1},
		{ExtensionID: "ext", ActivityType: domain.ActivityAPICall, APICall: "tabs.query", PageURL: "https://b.com", Time: 2},
		{ExtensionID: "ext", ActivityType: domain.ActivityDOMEvent, APICall: "click", Time: 3},
	} {
		_, err := store.Save(context.Background(), ev)
		require.NoError(t, err)
	}
}

func TestHistoryCommand(t *testing.T) {
	gs, out := newTestGlobalState(t)
	seedArchive(t, gs)

	root := newRootCommand(gs)
	root.SetArgs([]string{"history", "--config", gs.flags.configPath, "-e", "ext", "--details"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "2 [API_CALL] tabs.query")
	assert.Contains(t, out.String(), "https://a.com")
	assert.Contains(t, out.String(), "1 [DOM_EVENT] click")

	out.Reset()
	root = newRootCommand(gs)
	root.SetArgs([]string{"history", "--config", gs.flags.configPath, "-e", "ext", "--exclude", "activityType:exact:dom_event"})
	require.NoError(t, root.Execute())
	assert.NotContains(t, out.String(), "click")

	out.Reset()
	root = newRootCommand(gs)
	root.SetArgs([]string{"clear-history", "--config", gs.flags.configPath, "-e", "ext"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "已删除 3 条活动")
}

func TestClearHistoryRequiresTarget(t *testing.T) {
	gs, _ := newTestGlobalState(t)
	root := newRootCommand(gs)
	root.SetArgs([]string{"clear-history", "--config", gs.flags.configPath})
	assert.Error(t, root.Execute())
}

func TestGlobalStateInit(t *testing.T) {
	gs, _ := newTestGlobalState(t)
	gs.flags.logLevel = "debug"
	require.NoError(t, gs.init())
	assert.Equal(t, "debug", gs.cfg.Log.Level)
	assert.IsType(t, &config.Config{}, gs.cfg)
}
