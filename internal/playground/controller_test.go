package playground

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/sakif/codeforge/internal/execservice"
	"github.com/sakif/codeforge/internal/language"
)

// stubRunner is a scriptable execservice.Runner.
//
// When Entered/Release are set, Run signals Entered on entry and then
// blocks until Release is closed — that lets tests observe the Pending
// phase while a dispatch is "in flight".
type stubRunner struct {
	Resp     *execservice.RunResponse
	Err      error
	Captured execservice.RunRequest

	Entered chan struct{}
	Release chan struct{}
}

func (r *stubRunner) Run(_ context.Context, req execservice.RunRequest) (*execservice.RunResponse, error) {
	r.Captured = req
	if r.Entered != nil {
		r.Entered <- struct{}{}
	}
	if r.Release != nil {
		<-r.Release
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Resp, nil
}

func newTestController(runner execservice.Runner) *Controller {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewController(runner, language.Default(), logger)
}

func floatPtr(f float64) *float64 { return &f }

func successResponse() *execservice.RunResponse {
	return &execservice.RunResponse{
		Stdout:      "hello",
		Stderr:      "",
		ElapsedTime: floatPtr(0.12),
		MemoryUsage: floatPtr(3.4),
		Message:     "Success",
	}
}

func TestRun_SuccessDecodesResponse(t *testing.T) {
	runner := &stubRunner{Resp: successResponse()}
	c := newTestController(runner)
	c.SetSourceCode(`print("hello")`)
	c.SetLanguage("Python")

	snap, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if snap.Result == nil {
		t.Fatal("expected a result after the run settled")
	}
	if snap.Result.Output != "hello" {
		t.Errorf("Output = %q, want %q", snap.Result.Output, "hello")
	}
	if !snap.Result.Success {
		t.Error("Success = false, want true")
	}
	if snap.Result.StatusMessage != "Success" {
		t.Errorf("StatusMessage = %q, want %q", snap.Result.StatusMessage, "Success")
	}
	if snap.Result.ElapsedSeconds == nil || *snap.Result.ElapsedSeconds != 0.12 {
		t.Errorf("ElapsedSeconds = %v, want 0.12", snap.Result.ElapsedSeconds)
	}
	if snap.Result.MemoryMB == nil || *snap.Result.MemoryMB != 3.4 {
		t.Errorf("MemoryMB = %v, want 3.4", snap.Result.MemoryMB)
	}
	if snap.Phase != PhaseIdle {
		t.Errorf("Phase = %v, want idle", snap.Phase)
	}
}

func TestRun_CombinesStdoutAndStderr(t *testing.T) {
	runner := &stubRunner{Resp: &execservice.RunResponse{
		Stdout:  "out\n",
		Stderr:  "err\n",
		Message: "Success",
	}}
	c := newTestController(runner)

	snap, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// stdout first, stderr appended directly, no separator.
	if snap.Result.Output != "out\nerr\n" {
		t.Errorf("Output = %q, want %q", snap.Result.Output, "out\nerr\n")
	}
}

func TestRun_EmptyOutputFallsBackToPlaceholder(t *testing.T) {
	runner := &stubRunner{Resp: &execservice.RunResponse{
		Stdout:      "",
		Stderr:      "",
		ElapsedTime: floatPtr(0),
		MemoryUsage: floatPtr(1),
		Message:     "Success",
	}}
	c := newTestController(runner)

	snap, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if snap.Result.Output != "No output" {
		t.Errorf("Output = %q, want %q", snap.Result.Output, "No output")
	}
	if !snap.Result.Success {
		t.Error("Success = false, want true")
	}
}

func TestRun_ServiceReportedFailureIsANormalResult(t *testing.T) {
	runner := &stubRunner{Resp: &execservice.RunResponse{
		Stdout:      "",
		Stderr:      "SyntaxError",
		ElapsedTime: floatPtr(0.05),
		MemoryUsage: floatPtr(2),
		Message:     "Runtime error",
	}}
	c := newTestController(runner)

	snap, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// A failing user program is the expected path, not an exception.
	if snap.Result.Success {
		t.Error("Success = true, want false")
	}
	if snap.Result.Output != "SyntaxError" {
		t.Errorf("Output = %q, want %q", snap.Result.Output, "SyntaxError")
	}
	if snap.Result.StatusMessage != "Runtime error" {
		t.Errorf("StatusMessage = %q, want %q", snap.Result.StatusMessage, "Runtime error")
	}
	if snap.Phase != PhaseIdle {
		t.Errorf("Phase = %v, want idle", snap.Phase)
	}
}

func TestRun_DispatchFailureKeepsPreviousMetrics(t *testing.T) {
	runner := &stubRunner{Resp: successResponse()}
	c := newTestController(runner)

	// First run succeeds and records timing + memory.
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	// Second run fails at the transport level.
	runner.Resp = nil
	runner.Err = errors.New("connection refused")

	snap, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	res := snap.Result
	if res.Output != "An error occurred while running the code." {
		t.Errorf("Output = %q, want the fixed dispatch-failure text", res.Output)
	}
	if res.StatusMessage != "Error" {
		t.Errorf("StatusMessage = %q, want %q", res.StatusMessage, "Error")
	}
	if res.Success {
		t.Error("Success = true, want false")
	}

	// Timing and memory are NOT cleared on dispatch failure.
	if res.ElapsedSeconds == nil || *res.ElapsedSeconds != 0.12 {
		t.Errorf("ElapsedSeconds = %v, want previous 0.12", res.ElapsedSeconds)
	}
	if res.MemoryMB == nil || *res.MemoryMB != 3.4 {
		t.Errorf("MemoryMB = %v, want previous 3.4", res.MemoryMB)
	}
	if snap.Phase != PhaseIdle {
		t.Errorf("Phase = %v, want idle", snap.Phase)
	}
}

func TestRun_DispatchFailureWithNoPriorRun(t *testing.T) {
	runner := &stubRunner{Err: errors.New("dial tcp: no route to host")}
	c := newTestController(runner)

	snap, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if snap.Result.ElapsedSeconds != nil || snap.Result.MemoryMB != nil {
		t.Errorf("metrics = (%v, %v), want both nil with no prior run",
			snap.Result.ElapsedSeconds, snap.Result.MemoryMB)
	}
}

func TestRun_PendingWhileDispatchInFlight(t *testing.T) {
	runner := &stubRunner{
		Resp:    successResponse(),
		Entered: make(chan struct{}),
		Release: make(chan struct{}),
	}
	c := newTestController(runner)

	done := make(chan Snapshot, 1)
	go func() {
		snap, _ := c.Run(context.Background())
		done <- snap
	}()

	// Wait until the dispatch has started, then check the phase.
	<-runner.Entered
	if got := c.Snapshot().Phase; got != PhasePending {
		t.Errorf("Phase during dispatch = %v, want pending", got)
	}

	// The previous result (none yet) stays visible while Pending.
	if c.Snapshot().Result != nil {
		t.Error("Result changed while Pending, want unchanged")
	}

	close(runner.Release)
	snap := <-done
	if snap.Phase != PhaseIdle {
		t.Errorf("Phase after settle = %v, want idle", snap.Phase)
	}
}

func TestRun_RejectsReentryWhilePending(t *testing.T) {
	runner := &stubRunner{
		Resp:    successResponse(),
		Entered: make(chan struct{}),
		Release: make(chan struct{}),
	}
	c := newTestController(runner)

	done := make(chan struct{})
	go func() {
		_, _ = c.Run(context.Background())
		close(done)
	}()

	<-runner.Entered
	if _, err := c.Run(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("re-entrant Run() error = %v, want ErrRunInProgress", err)
	}

	close(runner.Release)
	<-done

	// After the in-flight run settles, Run is accepted again.
	runner.Entered = nil
	runner.Release = nil
	if _, err := c.Run(context.Background()); err != nil {
		t.Errorf("Run() after settle error = %v, want nil", err)
	}
}

func TestRun_InFlightRequestIgnoresLaterEdits(t *testing.T) {
	runner := &stubRunner{
		Resp:    successResponse(),
		Entered: make(chan struct{}),
		Release: make(chan struct{}),
	}
	c := newTestController(runner)
	c.SetSourceCode("original")
	c.SetLanguage("JavaScript")
	c.SetStdin("1 2 3")

	done := make(chan struct{})
	go func() {
		_, _ = c.Run(context.Background())
		close(done)
	}()

	<-runner.Entered
	// Edits while Pending must not leak into the dispatched request.
	c.SetSourceCode("edited mid-flight")
	c.SetStdin("different")
	close(runner.Release)
	<-done

	if runner.Captured.SourceCode != "original" {
		t.Errorf("dispatched SourceCode = %q, want %q", runner.Captured.SourceCode, "original")
	}
	if runner.Captured.InputData != "1 2 3" {
		t.Errorf("dispatched InputData = %q, want %q", runner.Captured.InputData, "1 2 3")
	}
	if runner.Captured.Language != "js" {
		t.Errorf("dispatched Language = %q, want %q", runner.Captured.Language, "js")
	}

	// The edits DO apply to the next run.
	if got := c.Snapshot().Editor.SourceCode; got != "edited mid-flight" {
		t.Errorf("Editor.SourceCode = %q, want the mid-flight edit", got)
	}
}

func TestSubscribe_ObservesPendingThenIdle(t *testing.T) {
	runner := &stubRunner{Resp: successResponse()}
	c := newTestController(runner)

	var phases []Phase
	unsubscribe := c.Subscribe(func(s Snapshot) {
		phases = append(phases, s.Phase)
	})

	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(phases) != 2 || phases[0] != PhasePending || phases[1] != PhaseIdle {
		t.Errorf("observed phases = %v, want [pending idle]", phases)
	}

	unsubscribe()
	seen := len(phases)
	c.SetSourceCode("after unsubscribe")
	if len(phases) != seen {
		t.Error("subscriber notified after unsubscribe")
	}
}

func TestSetters_NotifySubscribers(t *testing.T) {
	c := newTestController(&stubRunner{Resp: successResponse()})

	var last Snapshot
	var calls int
	c.Subscribe(func(s Snapshot) {
		last = s
		calls++
	})

	c.SetSourceCode("x = 1")
	c.SetLanguage("Python")
	c.SetStdin("42")

	if calls != 3 {
		t.Errorf("subscriber calls = %d, want 3", calls)
	}
	if last.Editor.SourceCode != "x = 1" || last.Editor.SelectedLanguage != "Python" || last.Input.Stdin != "42" {
		t.Errorf("final snapshot = %+v, want the applied edits", last)
	}
}

func TestRun_ContextIsPassedToRunner(t *testing.T) {
	type ctxKey string
	var seen context.Context
	runner := runnerFunc(func(ctx context.Context, _ execservice.RunRequest) (*execservice.RunResponse, error) {
		seen = ctx
		return successResponse(), nil
	})
	c := newTestController(runner)

	ctx := context.WithValue(context.Background(), ctxKey("k"), "v")
	if _, err := c.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if seen == nil || seen.Value(ctxKey("k")) != "v" {
		t.Error("controller did not pass the caller's context to the runner")
	}
}

// runnerFunc adapts a function to execservice.Runner.
type runnerFunc func(context.Context, execservice.RunRequest) (*execservice.RunResponse, error)

func (f runnerFunc) Run(ctx context.Context, req execservice.RunRequest) (*execservice.RunResponse, error) {
	return f(ctx, req)
}

func TestPhase_String(t *testing.T) {
	if PhaseIdle.String() != "idle" || PhasePending.String() != "pending" {
		t.Errorf("Phase strings = %q/%q, want idle/pending", PhaseIdle, PhasePending)
	}
}

// Guard against the pending transition racing the snapshot copy: hammer
// Snapshot while runs settle and let the race detector judge.
func TestSnapshot_ConcurrentWithRuns(t *testing.T) {
	runner := &stubRunner{Resp: successResponse()}
	c := newTestController(runner)

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				_ = c.Snapshot()
			}
		}
	}()

	deadline := time.Now().Add(50 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, err := c.Run(context.Background()); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	}
	close(stop)
}
