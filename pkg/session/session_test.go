package session_test

import (
	"errors"
	"testing"

	"github.com/aretw0/autoflow/pkg/document"
	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/aretw0/autoflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id string) domain.LogEntry {
	return domain.LogEntry{NodeID: id, Data: map[string]any{}}
}

func TestSession_StartCommitFinish(t *testing.T) {
	s := session.New("s1", document.Default())

	start, err := s.Start()
	require.NoError(t, err)
	assert.Equal(t, "trigger-1", start)

	_, err = s.Start()
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	cur := s.Cursor()
	assert.Equal(t, domain.RunRunning, cur.Status)
	assert.True(t, s.Commit(cur.Epoch, entry("trigger-1"), map[string]any{"a": 1}, "ai-1"))
	assert.False(t, s.Commit(cur.Epoch, entry("ai-1"), map[string]any{"a": 2}, ""))

	state := s.State()
	assert.Equal(t, domain.RunIdle, state.Status)
	assert.Equal(t, 2, state.StepCount)
	assert.Equal(t, []string{"trigger-1", "ai-1"}, state.Visited())
	assert.Equal(t, 2, state.Context["a"])
	assert.Empty(t, state.CurrentNodeID)
}

func TestSession_StopKeepsInFlightStep(t *testing.T) {
	s := session.New("s1", document.Default())
	_, err := s.Start()
	require.NoError(t, err)
	cur := s.Cursor()

	s.Stop()
	assert.False(t, s.Commit(cur.Epoch, entry("trigger-1"), map[string]any{}, "ai-1"))

	state := s.State()
	assert.Equal(t, domain.RunStopped, state.Status)
	assert.Len(t, state.Logs, 1)
	assert.Equal(t, "ai-1", state.CurrentNodeID)
}

func TestSession_ResetDropsStaleStep(t *testing.T) {
	s := session.New("s1", document.Default())
	_, err := s.Start()
	require.NoError(t, err)
	cur := s.Cursor()

	s.Reset()
	assert.False(t, s.Commit(cur.Epoch, entry("trigger-1"), map[string]any{"x": 1}, "ai-1"))
	s.Halt(cur.Epoch, errors.New("late failure"))

	state := s.State()
	assert.Equal(t, domain.RunIdle, state.Status)
	assert.Empty(t, state.Logs)
	assert.Empty(t, state.Context)
	assert.Empty(t, state.Err)
}

func TestSession_Halt(t *testing.T) {
	s := session.New("s1", document.Default())
	_, err := s.Start()
	require.NoError(t, err)

	s.Halt(s.Cursor().Epoch, errors.New("boom"))
	state := s.State()
	assert.Equal(t, domain.RunStopped, state.Status)
	assert.Equal(t, "boom", state.Err)
	assert.True(t, s.Stopped())
}

func TestSession_PrimeResumesOrRestarts(t *testing.T) {
	s := session.New("s1", document.Default())

	cur, err := s.Prime()
	require.NoError(t, err)
	assert.Equal(t, "trigger-1", cur.NodeID)
	assert.Equal(t, domain.RunIdle, cur.Status)
	s.Commit(cur.Epoch, entry("trigger-1"), map[string]any{"k": "v"}, "ai-1")
	s.Release()

	cur, err = s.Prime()
	require.NoError(t, err)
	assert.Equal(t, "ai-1", cur.NodeID)
	assert.Equal(t, "v", cur.Context["k"])
	assert.Equal(t, 1, cur.Step)

	s.Commit(cur.Epoch, entry("ai-1"), cur.Context, "")
	s.Release()
	cur, err = s.Prime()
	require.NoError(t, err)
	assert.Equal(t, "trigger-1", cur.NodeID)
	assert.Empty(t, s.State().Logs)
}

func TestSession_PrimeClaimsOneStep(t *testing.T) {
	s := session.New("s1", document.Default())

	cur, err := s.Prime()
	require.NoError(t, err)

	_, err = s.Prime()
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
	_, err = s.Start()
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	s.Commit(cur.Epoch, entry("trigger-1"), map[string]any{}, "ai-1")
	_, err = s.Prime()
	assert.ErrorIs(t, err, domain.ErrRunInProgress, "the claim outlives the commit")

	s.Release()
	cur, err = s.Prime()
	require.NoError(t, err)
	assert.Equal(t, "ai-1", cur.NodeID)
}

func TestSession_StateIsACopy(t *testing.T) {
	s := session.New("s1", document.Default())
	_, _ = s.Start()
	cur := s.Cursor()
	s.Commit(cur.Epoch, entry("trigger-1"), map[string]any{"k": "v"}, "ai-1")

	state := s.State()
	state.Context["k"] = "changed"
	state.Logs[0].NodeID = "changed"

	fresh := s.State()
	assert.Equal(t, "v", fresh.Context["k"])
	assert.Equal(t, "trigger-1", fresh.Logs[0].NodeID)
}

func TestSession_LiveDocument(t *testing.T) {
	s := session.New("s1", document.Default())
	s.Document().DeleteNode("trigger-1")

	start, err := s.Start()
	require.NoError(t, err)
	assert.Equal(t, "trigger-1", start, "start id is kept even when the node is gone")
	assert.NotNil(t, s.Chat)
}
