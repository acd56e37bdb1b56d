// Package playground implements the run-submission lifecycle behind the
// playground view.
//
// THE SHAPE OF THE PROBLEM:
// A user edits code, picks a language, types stdin, and hits Run. From
// that moment the view needs to show a busy indicator, keep displaying
// the previous result while the run is in flight, and then atomically
// swap in the new outcome — whether the service answered, the user's
// program failed, or the dispatch itself blew up. That is a small state
// machine, and this package is where it lives.
//
// STATE MACHINE:
//
//	Idle ──Run()──▶ Pending ──dispatch settles──▶ Idle
//
// There are exactly two phases. Run() moves to Pending synchronously,
// before any network activity, so observers see the busy indicator
// immediately. The return to Idle is unconditional — success, service
// failure, and transport failure all land there, so the controller can
// never be stuck Pending.
//
// OWNERSHIP:
// One Controller exists per signed-in user session (see Sessions). All
// of its state is private and mutex-guarded; the outside world only ever
// sees value-copy Snapshots, either by asking for one or by subscribing.
package playground

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sakif/codeforge/internal/execservice"
	"github.com/sakif/codeforge/internal/language"
)

// ErrRunInProgress is returned by Run when a dispatch is already in
// flight. Re-entry is rejected rather than queued: the view's Run button
// is disabled while Pending, so a second trigger is either a double
// click or a misbehaving client, and neither deserves a second sandbox
// slot. HTTP maps this to 409 Conflict.
var ErrRunInProgress = errors.New("playground: a run is already in progress")

// User-visible literals. The frontend renders these verbatim, so they are
// part of the contract with the templates and must not be reworded
// casually.
const (
	// noOutputPlaceholder is shown when a successful run produced
	// neither stdout nor stderr.
	noOutputPlaceholder = "No output"
	// dispatchFailedOutput replaces the output pane when the dispatch
	// itself failed — the user's program never ran.
	dispatchFailedOutput = "An error occurred while running the code."
	// statusError is the status label for a failed dispatch.
	statusError = "Error"
)

// Phase is the two-state busy/idle indicator for the run lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
)

// String returns the phase name used in snapshots and logs.
func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	default:
		return "idle"
	}
}

// MarshalJSON encodes the phase as its lowercase name, which is what the
// frontend switches on.
func (p Phase) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// EditorState is the editor collaborator's contribution to a run: the
// source text and the selected language label (label, not short code —
// mapping happens at request-build time).
type EditorState struct {
	SourceCode       string `json:"sourceCode"`
	SelectedLanguage string `json:"selectedLanguage"`
}

// ExecutionInput is the stdin the user wants fed to their program.
type ExecutionInput struct {
	Stdin string `json:"stdin"`
}

// Result is the last-known outcome of a run. A new Result replaces the
// previous one wholesale — fields are never merged across runs, with one
// deliberate exception: on dispatch failure the previous timing and
// memory figures are carried over (see Run).
type Result struct {
	// Output is stdout with stderr appended, no separator. For runs
	// that produced nothing it holds the "No output" placeholder.
	Output string `json:"output"`
	// ElapsedSeconds is nil when the service didn't report timing.
	ElapsedSeconds *float64 `json:"elapsedSeconds"`
	// MemoryMB is nil when the service didn't report memory usage.
	MemoryMB *float64 `json:"memoryMb"`
	// StatusMessage is the service's verbatim status ("Success",
	// "Runtime error", ...) or the fixed "Error" on dispatch failure.
	StatusMessage string `json:"statusMessage"`
	// Success is true exactly when StatusMessage is "Success".
	Success bool `json:"success"`
}

// Snapshot is the controller's externally visible state: everything the
// presentation shell needs to render the view. It is a value copy —
// holding one never observes later mutations.
type Snapshot struct {
	Editor EditorState    `json:"editor"`
	Input  ExecutionInput `json:"input"`
	Phase  Phase          `json:"phase"`
	// Result is nil until the first run settles.
	Result *Result `json:"result"`
}

// Controller owns the run lifecycle state for one user session.
//
// CONCURRENCY:
// In the browser this state machine would live on the single UI thread.
// Server-side, handler goroutines stand in for UI events, so the mutex
// is the event loop: every transition is serialized through it. The one
// blocking operation — the dispatch — happens with the lock released, so
// Snapshot and the mutators stay responsive while a run is in flight.
type Controller struct {
	runner execservice.Runner
	mapper *language.Mapper
	logger *slog.Logger

	mu      sync.Mutex
	editor  EditorState
	input   ExecutionInput
	phase   Phase
	result  *Result
	subs    map[int]func(Snapshot)
	nextSub int
}

// NewController creates an Idle controller with empty editor state.
func NewController(runner execservice.Runner, mapper *language.Mapper, logger *slog.Logger) *Controller {
	return &Controller{
		runner: runner,
		mapper: mapper,
		logger: logger,
		phase:  PhaseIdle,
		subs:   make(map[int]func(Snapshot)),
	}
}

// SetSourceCode records an editor content change.
// Edits never affect a run that is already in flight — the request is
// snapshotted when Run is called.
func (c *Controller) SetSourceCode(source string) {
	c.mu.Lock()
	c.editor.SourceCode = source
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// SetLanguage records a language selector change. The label is stored
// as-is; mapping to a short code is deferred to request build time.
func (c *Controller) SetLanguage(label string) {
	c.mu.Lock()
	c.editor.SelectedLanguage = label
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// SetStdin records a change to the stdin input box.
func (c *Controller) SetStdin(stdin string) {
	c.mu.Lock()
	c.input.Stdin = stdin
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// LoadEditor replaces the whole editor state and stdin in one step, e.g.
// when the user opens a saved snippet.
func (c *Controller) LoadEditor(editor EditorState, input ExecutionInput) {
	c.mu.Lock()
	c.editor = editor
	c.input = input
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Snapshot returns a copy of the current view state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn to be called with a fresh Snapshot after every
// state change. The returned function removes the subscription.
//
// Callbacks run on whichever goroutine caused the change, outside the
// controller's lock, so a subscriber may call Snapshot (but should not
// block for long).
func (c *Controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Run executes the full lifecycle: build the request from the current
// editor state, go Pending, dispatch, decode the outcome, return to
// Idle. It blocks until the dispatch settles and returns the terminal
// snapshot.
//
// The only error Run returns is ErrRunInProgress. A failed dispatch is
// not an error to the caller — it is recovered into a Result the view
// renders ("An error occurred..."), because from the user's seat that IS
// the outcome of pressing Run. The failure detail goes to the log.
func (c *Controller) Run(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.phase == PhasePending {
		c.mu.Unlock()
		return Snapshot{}, ErrRunInProgress
	}

	// The request is an immutable snapshot of the editor at this
	// instant. Edits made while the run is in flight apply to the NEXT
	// run, never this one.
	req := BuildRequest(c.editor, c.input, c.mapper)

	// Pending is set before any network activity so the busy indicator
	// appears immediately and re-entry is rejected from here on.
	c.phase = PhasePending
	pending := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(pending)

	resp, err := c.runner.Run(ctx, req)

	c.mu.Lock()
	if err != nil {
		c.logger.Error("run dispatch failed",
			slog.String("language", req.Language),
			slog.String("error", err.Error()),
		)
		c.result = c.dispatchFailureResultLocked()
	} else {
		c.result = resultFromResponse(resp)
	}
	// Unconditional: the controller must never be left Pending.
	c.phase = PhaseIdle
	settled := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(settled)

	return settled, nil
}

// resultFromResponse decodes a well-formed service response into a view
// Result. Service-reported failures (Message != "Success") are normal
// results here — a syntax error in user code is the expected path, not
// an exception.
func resultFromResponse(resp *execservice.RunResponse) *Result {
	// stdout first, stderr appended directly. The service already
	// newline-terminates its streams, so no separator is inserted.
	output := resp.Stdout + resp.Stderr
	if output == "" {
		output = noOutputPlaceholder
	}

	return &Result{
		Output:         output,
		ElapsedSeconds: resp.ElapsedTime,
		MemoryMB:       resp.MemoryUsage,
		StatusMessage:  resp.Message,
		Success:        resp.Message == execservice.MessageSuccess,
	}
}

// dispatchFailureResultLocked builds the fixed error Result for a failed
// dispatch. Timing and memory keep their previous values — the view
// keeps showing the last real measurements rather than blanking them.
// Callers must hold c.mu.
func (c *Controller) dispatchFailureResultLocked() *Result {
	res := &Result{
		Output:        dispatchFailedOutput,
		StatusMessage: statusError,
		Success:       false,
	}
	if prev := c.result; prev != nil {
		res.ElapsedSeconds = prev.ElapsedSeconds
		res.MemoryMB = prev.MemoryMB
	}
	return res
}

// snapshotLocked copies the current state. Callers must hold c.mu.
func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Editor: c.editor,
		Input:  c.input,
		Phase:  c.phase,
	}
	if c.result != nil {
		res := *c.result
		snap.Result = &res
	}
	return snap
}

// notify invokes the current subscribers with snap, outside the lock.
func (c *Controller) notify(snap Snapshot) {
	c.mu.Lock()
	fns := make([]func(Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
