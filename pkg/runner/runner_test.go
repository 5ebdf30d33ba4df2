package runner_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/autoflow/internal/runtime"
	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/aretw0/autoflow/pkg/handlers"
	"github.com/aretw0/autoflow/pkg/runner"
	"github.com/aretw0/autoflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id string, t domain.NodeType, next string, cfg domain.Config) domain.Node {
	if cfg == nil {
		cfg, _ = domain.NewConfig(t)
	}
	return domain.Node{ID: id, Type: t, Next: next, Config: cfg}
}

func newRunner(reg *handlers.Registry, opts ...runner.Option) *runner.Runner {
	if reg == nil {
		reg = handlers.NewDefaultRegistry(handlers.WithDecider(handlers.Always(true)))
	}
	return runner.New(runtime.NewStepper(reg, runtime.WithDelay(0)), opts...)
}

// observerFunc lets a test react to committed log entries.
type observerFunc func(entry domain.LogEntry)

func (f observerFunc) OnLog(_ context.Context, _ string, entry domain.LogEntry) { f(entry) }
func (f observerFunc) OnStatus(context.Context, string, domain.RunState)       {}

func TestRun_TriggerThenLog(t *testing.T) {
	sess := session.New("s", domain.Workflow{
		ID:          "wf",
		StartNodeID: "t",
		Nodes: []domain.Node{
			node("t", domain.NodeTypeTrigger, "l", nil),
			node("l", domain.NodeTypeLog, "", &domain.LogConfig{Message: "done"}),
		},
	})

	state, err := newRunner(nil).Run(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, domain.RunIdle, state.Status)
	require.Len(t, state.Logs, 2)
	assert.Equal(t, 1, state.Logs[0].Step)
	assert.Equal(t, 2, state.Logs[1].Step)
	assert.Equal(t, "Trigger activated (manual)", state.Logs[0].Message)
	assert.Equal(t, "Executed node l", state.Logs[1].Message)
	assert.Contains(t, state.Context, "trigger")
	assert.Empty(t, state.Err)
}

func TestRun_ConditionTakesExactlyOneBranch(t *testing.T) {
	for _, branch := range []bool{true, false} {
		reg := handlers.NewDefaultRegistry(handlers.WithDecider(handlers.Always(branch)))
		sess := session.New("s", domain.Workflow{
			ID:          "wf",
			StartNodeID: "c",
			Nodes: []domain.Node{
				node("c", domain.NodeTypeCondition, "", &domain.ConditionConfig{Expression: "x > 1", OnTrue: "yes", OnFalse: "no"}),
				node("yes", domain.NodeTypeLog, "", nil),
				node("no", domain.NodeTypeLog, "", nil),
			},
		})

		state, err := newRunner(reg).Run(context.Background(), sess)
		require.NoError(t, err)

		want := "no"
		if branch {
			want = "yes"
		}
		assert.Equal(t, []string{"c", want}, state.Visited())
	}
}

func TestRun_SelfLoopHitsStepLimit(t *testing.T) {
	sess := session.New("s", domain.Workflow{
		ID:          "wf",
		StartNodeID: "loop",
		Nodes:       []domain.Node{node("loop", domain.NodeTypeLog, "loop", nil)},
	})

	state, err := newRunner(nil, runner.WithMaxSteps(5)).Run(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStopped, state.Status)
	assert.Len(t, state.Logs, 5)
	assert.Contains(t, state.Err, runner.ErrMaxSteps.Error())
}

func TestRun_MissingStartNode(t *testing.T) {
	sess := session.New("s", domain.Workflow{
		ID:          "wf",
		StartNodeID: "ghost",
		Nodes:       []domain.Node{node("l", domain.NodeTypeLog, "", nil)},
	})

	state, err := newRunner(nil).Run(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, domain.RunIdle, state.Status)
	require.Len(t, state.Logs, 1)
	assert.Equal(t, "Error: Node ghost not found.", state.Logs[0].Message)
	assert.Equal(t, domain.NodeTypeLog, state.Logs[0].NodeType)
}

func TestRun_NoStartNode(t *testing.T) {
	sess := session.New("s", domain.Workflow{ID: "wf"})

	state, err := newRunner(nil).Run(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, domain.RunIdle, state.Status)
	assert.Empty(t, state.Logs)
}

func TestRun_StopBetweenSteps(t *testing.T) {
	var sess *session.Session
	stopper := observerFunc(func(domain.LogEntry) { sess.Stop() })
	sess = session.New("s", domain.Workflow{
		ID:          "wf",
		StartNodeID: "a",
		Nodes: []domain.Node{
			node("a", domain.NodeTypeLog, "b", nil),
			node("b", domain.NodeTypeLog, "", nil),
		},
	})

	state, err := newRunner(nil, runner.WithObserver(stopper)).Run(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStopped, state.Status)
	assert.Equal(t, []string{"a"}, state.Visited())
	assert.Equal(t, "b", state.CurrentNodeID)
}

func TestRun_LiveGraphEdits(t *testing.T) {
	var sess *session.Session
	editor := observerFunc(func(e domain.LogEntry) {
		if e.NodeID == "a" {
			sess.Document().DeleteNode("b")
		}
	})
	sess = session.New("s", domain.Workflow{
		ID:          "wf",
		StartNodeID: "a",
		Nodes: []domain.Node{
			node("a", domain.NodeTypeLog, "b", nil),
			node("b", domain.NodeTypeLog, "", nil),
		},
	})

	state, err := newRunner(nil, runner.WithObserver(editor)).Run(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, state.Logs, 2)
	assert.Equal(t, "Error: Node b not found.", state.Logs[1].Message)
}

func TestRun_HandlerErrorStopsRun(t *testing.T) {
	reg := handlers.NewDefaultRegistry()
	reg.Register(domain.NodeTypeHTTPRequest, handlers.HandlerFunc(
		func(context.Context, domain.Node, map[string]any) (handlers.Outcome, error) {
			return handlers.Outcome{}, errors.New("connection refused")
		}))
	sess := session.New("s", domain.Workflow{
		ID:          "wf",
		StartNodeID: "t",
		Nodes: []domain.Node{
			node("t", domain.NodeTypeTrigger, "h", nil),
			node("h", domain.NodeTypeHTTPRequest, "", nil),
		},
	})

	state, err := newRunner(reg).Run(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStopped, state.Status)
	assert.Len(t, state.Logs, 1)
	assert.Contains(t, state.Err, "connection refused")
}

func TestRun_PanicStopsRun(t *testing.T) {
	reg := handlers.NewDefaultRegistry()
	reg.Register(domain.NodeTypeOutput, handlers.HandlerFunc(
		func(context.Context, domain.Node, map[string]any) (handlers.Outcome, error) {
			panic("kaboom")
		}))
	sess := session.New("s", domain.Workflow{
		ID:          "wf",
		StartNodeID: "o",
		Nodes:       []domain.Node{node("o", domain.NodeTypeOutput, "", nil)},
	})

	state, err := newRunner(reg).Run(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStopped, state.Status)
	assert.Contains(t, state.Err, "kaboom")
	assert.Empty(t, state.Logs)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sess := session.New("s", domain.Workflow{
		ID:          "wf",
		StartNodeID: "a",
		Nodes:       []domain.Node{node("a", domain.NodeTypeLog, "", nil)},
	})

	state, err := newRunner(nil).Run(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStopped, state.Status)
	assert.Equal(t, context.Canceled.Error(), state.Err)
}

func TestRun_AlreadyRunning(t *testing.T) {
	sess := session.New("s", domain.Workflow{
		ID:          "wf",
		StartNodeID: "a",
		Nodes:       []domain.Node{node("a", domain.NodeTypeLog, "", nil)},
	})
	_, err := sess.Start()
	require.NoError(t, err)

	_, err = newRunner(nil).Run(context.Background(), sess)
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
}

func TestStepOnce(t *testing.T) {
	sess := session.New("s", domain.Workflow{
		ID:          "wf",
		StartNodeID: "t",
		Nodes: []domain.Node{
			node("t", domain.NodeTypeTrigger, "l", nil),
			node("l", domain.NodeTypeLog, "", nil),
		},
	})
	r := newRunner(nil)
	ctx := context.Background()

	first, err := r.StepOnce(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, "t", first.NodeID)
	assert.Equal(t, "l", sess.State().CurrentNodeID)

	second, err := r.StepOnce(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, "l", second.NodeID)
	assert.Equal(t, 2, second.Step)
	assert.Empty(t, sess.State().CurrentNodeID)

	restarted, err := r.StepOnce(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, "t", restarted.NodeID)
	assert.Equal(t, 1, restarted.Step)
}

func TestStepOnce_OneStepInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	reg := handlers.NewDefaultRegistry()
	reg.Register(domain.NodeTypeTrigger, handlers.HandlerFunc(
		func(context.Context, domain.Node, map[string]any) (handlers.Outcome, error) {
			close(entered)
			<-release
			return handlers.Outcome{Message: "fired", Next: "l"}, nil
		}))
	sess := session.New("s", domain.Workflow{
		ID:          "wf",
		StartNodeID: "t",
		Nodes: []domain.Node{
			node("t", domain.NodeTypeTrigger, "l", nil),
			node("l", domain.NodeTypeLog, "", nil),
		},
	})
	r := newRunner(reg)
	ctx := context.Background()

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = r.StepOnce(ctx, sess)
	}()
	<-entered

	_, err := r.StepOnce(ctx, sess)
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
	_, err = r.Run(ctx, sess)
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)

	state := sess.State()
	assert.Equal(t, 1, state.StepCount)
	require.Len(t, state.Logs, 1)
	assert.Equal(t, "t", state.Logs[0].NodeID)
	assert.Equal(t, "l", state.CurrentNodeID)

	second, err := r.StepOnce(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, "l", second.NodeID)
	assert.Equal(t, 2, second.Step)
}

func TestStepOnce_FailureReleasesClaim(t *testing.T) {
	reg := handlers.NewDefaultRegistry()
	reg.Register(domain.NodeTypeHTTPRequest, handlers.HandlerFunc(
		func(context.Context, domain.Node, map[string]any) (handlers.Outcome, error) {
			return handlers.Outcome{}, errors.New("connection refused")
		}))
	sess := session.New("s", domain.Workflow{
		ID:          "wf",
		StartNodeID: "h",
		Nodes:       []domain.Node{node("h", domain.NodeTypeHTTPRequest, "", nil)},
	})
	r := newRunner(reg)

	_, err := r.StepOnce(context.Background(), sess)
	require.Error(t, err)
	_, err = r.StepOnce(context.Background(), sess)
	assert.ErrorContains(t, err, "connection refused")
}

func TestJSONObserver(t *testing.T) {
	var buf bytes.Buffer
	sess := session.New("s", domain.Workflow{
		ID:          "wf",
		StartNodeID: "a",
		Nodes:       []domain.Node{node("a", domain.NodeTypeLog, "", nil)},
	})

	_, err := newRunner(nil, runner.WithObserver(runner.NewJSONObserver(&buf))).Run(context.Background(), sess)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var types []string
	for _, line := range lines {
		var ev runner.Event
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		assert.Equal(t, "s", ev.SessionID)
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{"status", "log", "status"}, types)
}

func TestTextObserver(t *testing.T) {
	var buf bytes.Buffer
	text := runner.NewTextObserver(&buf)
	multi := runner.MultiObserver{text, runner.NopObserver{}}
	sess := session.New("s", domain.Workflow{
		ID:          "wf",
		StartNodeID: "a",
		Nodes:       []domain.Node{node("a", domain.NodeTypeLog, "", nil)},
	})

	_, err := newRunner(nil, runner.WithObserver(multi)).Run(context.Background(), sess)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Simulation started at a")
	assert.Contains(t, out, "#1 a [log] Executed node a")
	assert.Contains(t, out, "Simulation finished after 1 steps")
}
