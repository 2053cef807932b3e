package upload

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roomify/roomify_server/internal/clock"
	"github.com/roomify/roomify_server/internal/dataurl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	authorized bool
}

func (a *fakeAuth) IsAuthorized() bool {
	return a.authorized
}

// scriptedReader finishes every read after a fixed delay on the manual clock.
type scriptedReader struct {
	clk   *clock.Manual
	delay time.Duration
	err   error
	calls int
}

func (r *scriptedReader) Read(_ context.Context, f *File, done func(string, error)) {
	r.calls++
	r.clk.AfterFunc(r.delay, func() {
		if r.err != nil {
			done("", r.err)
			return
		}
		done(dataurl.Encode(f.MediaType, []byte(f.Name)), nil)
	})
}

type completion struct {
	at      time.Duration
	encoded string
}

type harness struct {
	clk         *clock.Manual
	start       time.Time
	auth        *fakeAuth
	reader      *scriptedReader
	widget      *Widget
	completions []completion
	snapshots   []Snapshot
}

func newHarness(t *testing.T, opts Options, readDelay time.Duration) *harness {
	t.Helper()

	start := time.Unix(1_700_000_000, 0)
	h := &harness{
		clk:   clock.NewManual(start),
		start: start,
		auth:  &fakeAuth{authorized: true},
	}
	h.reader = &scriptedReader{clk: h.clk, delay: readDelay}

	w, err := New(h.auth, h.reader, h.clk, opts, func(encoded string) {
		h.completions = append(h.completions, completion{at: h.elapsed(), encoded: encoded})
	}, WithObserver(func(s Snapshot) {
		h.snapshots = append(h.snapshots, s)
	}))
	require.NoError(t, err)
	h.widget = w
	return h
}

func (h *harness) elapsed() time.Duration {
	return h.clk.Now().Sub(h.start)
}

func scenarioOptions() Options {
	return Options{TickPeriod: 100 * time.Millisecond, TickStep: 10, CompletionDelay: 1500 * time.Millisecond}
}

func pngFile(name string) *File {
	return NewFile(name, "image/png", []byte("png-bytes"))
}

func TestNew_ShouldValidateOptions(t *testing.T) {
	auth := &fakeAuth{}
	cases := []struct {
		name    string
		opts    Options
		wantErr error
	}{
		{"zero period", Options{TickPeriod: 0, TickStep: 10}, ErrInvalidTickPeriod},
		{"zero step", Options{TickPeriod: time.Millisecond, TickStep: 0}, ErrInvalidTickStep},
		{"negative delay", Options{TickPeriod: time.Millisecond, TickStep: 1, CompletionDelay: -1}, ErrInvalidCompletionDelay},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(auth, nil, nil, tc.opts, nil)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestNew_ShouldRequireAuthorizer(t *testing.T) {
	_, err := New(nil, nil, nil, DefaultOptions(), nil)

	assert.ErrorIs(t, err, ErrNoAuthorizer)
}

func TestWidget_Select_ShouldAcceptWhitelistedMediaTypes(t *testing.T) {
	for _, mediaType := range []string{"image/jpeg", "image/png", "image/jpg"} {
		t.Run(mediaType, func(t *testing.T) {
			// given
			h := newHarness(t, scenarioOptions(), 50*time.Millisecond)

			// when
			result := h.widget.Select(NewFile("plan", mediaType, []byte("x")))

			// then
			assert.Equal(t, Result{Accepted: true}, result)
			snap := h.widget.Snapshot()
			assert.Equal(t, PhaseReading, snap.Phase)
			assert.Equal(t, "plan", snap.FileName)
			assert.Equal(t, 0, snap.Progress)
			assert.Equal(t, uint64(1), snap.Cycle)
			assert.Equal(t, 1, h.reader.calls)
		})
	}
}

func TestWidget_ShouldRefuseDisallowedMediaTypesOnBothPaths(t *testing.T) {
	for _, mediaType := range []string{"image/gif", "application/pdf", ""} {
		t.Run(mediaType, func(t *testing.T) {
			// given
			h := newHarness(t, scenarioOptions(), 50*time.Millisecond)
			before := h.widget.Snapshot()

			// when
			picked := h.widget.Select(NewFile("plan", mediaType, []byte("x")))
			dropped := h.widget.Drop(NewFile("plan", mediaType, []byte("x")))

			// then
			assert.Equal(t, Result{ClearInput: true}, picked)
			assert.Equal(t, Result{}, dropped)
			assert.Equal(t, before, h.widget.Snapshot())
			assert.Zero(t, h.reader.calls)
			assert.Zero(t, h.clk.Pending())
		})
	}
}

func TestWidget_ShouldRefuseEverythingWhenNotAuthorized(t *testing.T) {
	// given
	h := newHarness(t, scenarioOptions(), 50*time.Millisecond)
	h.auth.authorized = false

	// when
	picked := h.widget.Select(pngFile("plan.png"))
	dropped := h.widget.Drop(pngFile("plan.png"))
	h.clk.Advance(10 * time.Second)

	// then
	assert.False(t, picked.Accepted)
	assert.True(t, picked.ClearInput)
	assert.False(t, dropped.Accepted)
	assert.False(t, dropped.ClearInput)
	snap := h.widget.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.True(t, snap.InputDisabled)
	assert.Equal(t, promptSignedOut, snap.Prompt)
	assert.Empty(t, h.completions)
	assert.Zero(t, h.reader.calls)
}

func TestWidget_Select_ShouldRefuseNilFile(t *testing.T) {
	h := newHarness(t, scenarioOptions(), 0)

	result := h.widget.Select(nil)

	assert.Equal(t, Result{ClearInput: true}, result)
}

func TestWidget_Progress_ShouldBeMonotoneAndClampedAtMax(t *testing.T) {
	// given
	opts := Options{TickPeriod: 100 * time.Millisecond, TickStep: 30, CompletionDelay: time.Second}
	h := newHarness(t, opts, 10*time.Millisecond)

	// when
	h.widget.Select(pngFile("plan.png"))
	h.clk.Advance(399 * time.Millisecond)
	beforeLastTick := h.widget.Snapshot().Progress
	h.clk.Advance(1 * time.Millisecond)

	// then
	assert.Equal(t, 90, beforeLastTick)
	assert.Equal(t, MaxProgress, h.widget.Snapshot().Progress)
	assert.Equal(t, 400*time.Millisecond, opts.TimeToComplete())

	last := 0
	for _, s := range h.snapshots {
		assert.GreaterOrEqual(t, s.Progress, last)
		assert.LessOrEqual(t, s.Progress, MaxProgress)
		last = s.Progress
	}

	// ticker is gone, only the completion timer remains
	assert.Equal(t, 1, h.clk.Pending())
	h.clk.Advance(10 * time.Second)
	assert.Equal(t, MaxProgress, h.widget.Snapshot().Progress)
}

func TestWidget_ShouldCompleteAfterDelayWhenReadFinishesFirst(t *testing.T) {
	// given
	h := newHarness(t, scenarioOptions(), 50*time.Millisecond)

	// when
	h.widget.Select(pngFile("plan.png"))
	h.clk.Advance(1000 * time.Millisecond)

	// then
	snap := h.widget.Snapshot()
	assert.Equal(t, MaxProgress, snap.Progress)
	assert.Equal(t, PhaseAwaitingCompletion, snap.Phase)
	assert.Equal(t, statusRedirecting, snap.StatusText)

	h.clk.Advance(1499 * time.Millisecond)
	assert.Empty(t, h.completions)

	h.clk.Advance(1 * time.Millisecond)
	require.Len(t, h.completions, 1)
	assert.Equal(t, 2500*time.Millisecond, h.completions[0].at)
	assert.Equal(t, dataurl.Encode("image/png", []byte("plan.png")), h.completions[0].encoded)
	assert.Equal(t, PhaseCompleted, h.widget.Snapshot().Phase)

	h.clk.Advance(time.Minute)
	assert.Len(t, h.completions, 1)
	assert.Zero(t, h.clk.Pending())
}

func TestWidget_ShouldScheduleCompletionFromReadWhenProgressFinishesFirst(t *testing.T) {
	// given
	h := newHarness(t, scenarioOptions(), 1200*time.Millisecond)

	// when
	h.widget.Select(pngFile("plan.png"))
	h.clk.Advance(1100 * time.Millisecond)

	// then
	snap := h.widget.Snapshot()
	assert.Equal(t, MaxProgress, snap.Progress)
	assert.Equal(t, PhaseReading, snap.Phase)

	h.clk.Advance(1599 * time.Millisecond)
	assert.Empty(t, h.completions)

	h.clk.Advance(1 * time.Millisecond)
	require.Len(t, h.completions, 1)
	assert.Equal(t, 2700*time.Millisecond, h.completions[0].at)

	h.clk.Advance(time.Minute)
	assert.Len(t, h.completions, 1)
}

func TestWidget_ShouldFireOnceWhenReadAndProgressFinishTogether(t *testing.T) {
	// given
	h := newHarness(t, scenarioOptions(), 1000*time.Millisecond)

	// when
	h.widget.Select(pngFile("plan.png"))
	h.clk.Advance(time.Minute)

	// then
	require.Len(t, h.completions, 1)
	assert.Equal(t, 2500*time.Millisecond, h.completions[0].at)
}

func TestWidget_NewFile_ShouldSupersedeCycleInFlight(t *testing.T) {
	// given
	h := newHarness(t, scenarioOptions(), 50*time.Millisecond)
	h.widget.Select(pngFile("first.png"))
	h.clk.Advance(500 * time.Millisecond)
	require.Equal(t, 50, h.widget.Snapshot().Progress)

	// when
	result := h.widget.Drop(NewFile("second.jpg", "image/jpeg", []byte("jpg")))

	// then
	assert.True(t, result.Accepted)
	snap := h.widget.Snapshot()
	assert.Equal(t, 0, snap.Progress)
	assert.Equal(t, "second.jpg", snap.FileName)
	assert.Equal(t, uint64(2), snap.Cycle)

	h.clk.Advance(time.Minute)
	require.Len(t, h.completions, 1)
	assert.Equal(t, dataurl.Encode("image/jpeg", []byte("second.jpg")), h.completions[0].encoded)
	assert.Equal(t, 500*time.Millisecond+2500*time.Millisecond, h.completions[0].at)
}

func TestWidget_NewFile_ShouldCancelPendingCompletion(t *testing.T) {
	// given
	h := newHarness(t, scenarioOptions(), 50*time.Millisecond)
	h.widget.Select(pngFile("first.png"))
	h.clk.Advance(2000 * time.Millisecond)
	require.Equal(t, PhaseAwaitingCompletion, h.widget.Snapshot().Phase)

	// when
	h.widget.Select(pngFile("second.png"))
	h.clk.Advance(time.Minute)

	// then
	require.Len(t, h.completions, 1)
	assert.Equal(t, dataurl.Encode("image/png", []byte("second.png")), h.completions[0].encoded)
}

func TestWidget_ReadFailure_ShouldResetToIdleWithoutCompleting(t *testing.T) {
	// given
	h := newHarness(t, scenarioOptions(), 300*time.Millisecond)
	h.reader.err = errors.New("unreadable")
	h.widget.Select(pngFile("broken.png"))

	// when
	h.clk.Advance(300 * time.Millisecond)

	// then
	snap := h.widget.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Equal(t, 0, snap.Progress)
	assert.Empty(t, snap.FileName)
	assert.Zero(t, h.clk.Pending())

	h.clk.Advance(time.Minute)
	assert.Empty(t, h.completions)
	assert.Equal(t, 0, h.widget.Snapshot().Progress)
}

func TestWidget_ReadFailureAfterProgressComplete_ShouldNotComplete(t *testing.T) {
	// given
	h := newHarness(t, scenarioOptions(), 1200*time.Millisecond)
	h.reader.err = errors.New("unreadable")
	h.widget.Select(pngFile("broken.png"))

	// when
	h.clk.Advance(time.Minute)

	// then
	assert.Empty(t, h.completions)
	assert.Equal(t, PhaseIdle, h.widget.Snapshot().Phase)
}

func TestWidget_ReadFailure_ShouldAllowImmediateRetry(t *testing.T) {
	// given
	h := newHarness(t, scenarioOptions(), 50*time.Millisecond)
	h.reader.err = errors.New("unreadable")
	h.widget.Select(pngFile("plan.png"))
	h.clk.Advance(50 * time.Millisecond)

	// when
	h.reader.err = nil
	result := h.widget.Select(pngFile("plan.png"))
	h.clk.Advance(time.Minute)

	// then
	assert.True(t, result.Accepted)
	assert.Len(t, h.completions, 1)
}

func TestWidget_Close_ShouldPreventLaterCompletion(t *testing.T) {
	for _, readDelay := range []time.Duration{50 * time.Millisecond, 1200 * time.Millisecond} {
		t.Run(readDelay.String(), func(t *testing.T) {
			// given
			h := newHarness(t, scenarioOptions(), readDelay)
			h.widget.Select(pngFile("plan.png"))
			h.clk.Advance(400 * time.Millisecond)

			// when
			h.widget.Close()
			h.clk.Advance(time.Minute)

			// then
			assert.Empty(t, h.completions)
			assert.Equal(t, 40, h.widget.Snapshot().Progress)
		})
	}
}

func TestWidget_Close_ShouldCancelArmedCompletionAndRefuseNewFiles(t *testing.T) {
	// given
	h := newHarness(t, scenarioOptions(), 50*time.Millisecond)
	h.widget.Select(pngFile("plan.png"))
	h.clk.Advance(2000 * time.Millisecond)

	// when
	h.widget.Close()
	h.widget.Close()
	result := h.widget.Select(pngFile("again.png"))
	h.clk.Advance(time.Minute)

	// then
	assert.False(t, result.Accepted)
	assert.Empty(t, h.completions)
	assert.Zero(t, h.clk.Pending())
}

func TestWidget_ShouldStabiliseWithoutCallback(t *testing.T) {
	// given
	clk := clock.NewManual(time.Unix(0, 0))
	reader := &scriptedReader{clk: clk, delay: 10 * time.Millisecond}
	w, err := New(&fakeAuth{authorized: true}, reader, clk, scenarioOptions(), nil)
	require.NoError(t, err)

	// when
	w.Select(pngFile("plan.png"))
	clk.Advance(time.Minute)

	// then
	assert.Equal(t, PhaseCompleted, w.Snapshot().Phase)
	assert.Zero(t, clk.Pending())
}

func TestWidget_ShouldHandleReaderThatFinishesSynchronously(t *testing.T) {
	// given
	clk := clock.NewManual(time.Unix(0, 0))
	var got []string
	w, err := New(&fakeAuth{authorized: true}, syncReader{}, clk, scenarioOptions(), func(encoded string) {
		got = append(got, encoded)
	})
	require.NoError(t, err)

	// when
	w.Select(pngFile("plan.png"))
	clk.Advance(2500 * time.Millisecond)

	// then
	assert.Equal(t, []string{"data:image/png;base64,cG5nLWJ5dGVz"}, got)
}

type syncReader struct{}

func (syncReader) Read(ctx context.Context, f *File, done func(string, error)) {
	encoded, err := readDataURL(ctx, f)
	done(encoded, err)
}

func TestWidget_Drag_ShouldOnlyIndicateWhileAuthorized(t *testing.T) {
	// given
	h := newHarness(t, scenarioOptions(), 0)

	// when not authorized
	h.auth.authorized = false
	h.widget.DragEnter()
	h.widget.DragOver()

	// then
	assert.False(t, h.widget.Snapshot().Dragging)

	// when authorized
	h.auth.authorized = true
	h.widget.DragEnter()
	assert.True(t, h.widget.Snapshot().Dragging)
	h.widget.DragLeave()
	assert.False(t, h.widget.Snapshot().Dragging)

	// drop clears the indicator even when the file is refused
	h.widget.DragOver()
	result := h.widget.Drop(NewFile("plan.gif", "image/gif", nil))
	assert.False(t, result.Accepted)
	assert.False(t, h.widget.Snapshot().Dragging)
}

func TestWidget_Drop_ShouldClearDraggingWhenNotAuthorized(t *testing.T) {
	// given
	h := newHarness(t, scenarioOptions(), 0)
	h.widget.DragEnter()
	h.auth.authorized = false

	// when
	result := h.widget.Drop(pngFile("plan.png"))

	// then
	assert.False(t, result.Accepted)
	assert.False(t, h.widget.Snapshot().Dragging)
}

func TestWidget_Accept_ShouldRouteBySource(t *testing.T) {
	h := newHarness(t, scenarioOptions(), 0)
	h.auth.authorized = false

	assert.True(t, h.widget.Accept(pngFile("a.png"), SourcePicker).ClearInput)
	assert.False(t, h.widget.Accept(pngFile("a.png"), SourceDrop).ClearInput)
}

func TestParseSource(t *testing.T) {
	src, ok := ParseSource("")
	assert.True(t, ok)
	assert.Equal(t, SourcePicker, src)

	src, ok = ParseSource("drop")
	assert.True(t, ok)
	assert.Equal(t, SourceDrop, src)

	_, ok = ParseSource("paste")
	assert.False(t, ok)
}
