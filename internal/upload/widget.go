package upload

import (
	"context"
	"sync"

	"github.com/roomify/roomify_server/internal/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Widget holds the state of one upload widget instance. At most one file is
// in flight; accepting a new file supersedes the previous cycle.
//
// All methods are safe for concurrent use. Timer and read callbacks are
// serialised through the widget's lock, so the state machine behaves as if it
// ran on a single event loop.
type Widget struct {
	mu sync.Mutex

	auth       Authorizer
	reader     ContentReader
	clock      clock.Clock
	opts       Options
	onComplete CompleteFunc
	observer   func(Snapshot)
	logger     zerolog.Logger

	cycle            uint64
	file             *File
	progress         int
	encoded          string
	progressComplete bool
	scheduled        bool
	phase            Phase
	dragging         bool
	closed           bool

	ticker     clock.Timer
	completion clock.Timer
	cancelRead context.CancelFunc
}

type Option func(*Widget)

// WithObserver registers fn to receive a Snapshot after every state change.
// fn runs while the widget is locked and must not call back into it.
func WithObserver(fn func(Snapshot)) Option {
	return func(w *Widget) {
		w.observer = fn
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(w *Widget) {
		w.logger = logger
	}
}

// New creates an idle widget. A nil reader defaults to DataURLReader and a nil
// clock to the wall clock.
func New(auth Authorizer, reader ContentReader, clk clock.Clock, opts Options, onComplete CompleteFunc, options ...Option) (*Widget, error) {
	if auth == nil {
		return nil, ErrNoAuthorizer
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if reader == nil {
		reader = DataURLReader{}
	}
	if clk == nil {
		clk = clock.Real{}
	}

	w := &Widget{
		auth:       auth,
		reader:     reader,
		clock:      clk,
		opts:       opts,
		onComplete: onComplete,
		logger:     log.Logger,
		phase:      PhaseIdle,
	}
	for _, option := range options {
		option(w)
	}
	return w, nil
}

func (w *Widget) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Close tears the widget down. Pending timers are cancelled, the in-flight
// read is abandoned and the completion callback will not run afterwards.
func (w *Widget) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.closed = true
	w.teardownLocked()
	w.cycle++

	w.logger.Debug().Msg("[Upload] Widget closed")
}

func (w *Widget) snapshotLocked() Snapshot {
	authorized := w.auth.IsAuthorized()

	s := Snapshot{
		Cycle:         w.cycle,
		Progress:      w.progress,
		Phase:         w.phase,
		Dragging:      w.dragging,
		InputDisabled: !authorized,
	}
	if w.file == nil {
		if authorized {
			s.Prompt = promptSignedIn
		} else {
			s.Prompt = promptSignedOut
		}
		return s
	}

	s.FileName = w.file.Name
	if w.progress < MaxProgress {
		s.StatusText = statusAnalyzing
	} else {
		s.StatusText = statusRedirecting
	}
	return s
}

func (w *Widget) notifyLocked() {
	if w.observer != nil {
		w.observer(w.snapshotLocked())
	}
}
