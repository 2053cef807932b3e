// Package upload implements the floor-plan upload widget: file intake gated by
// authorization and a media type whitelist, a simulated analysis progress bar,
// and a deferred, exactly-once completion notification carrying the file's
// content as a data url.
package upload

import (
	"bytes"
	"io"
	"time"
)

const (
	DefaultTickPeriod      = 100 * time.Millisecond
	DefaultTickStep        = 10
	DefaultCompletionDelay = 1500 * time.Millisecond

	// MaxProgress is the value at which the simulated analysis is complete.
	MaxProgress = 100

	// PickerAccept is the advisory extension filter for file pickers. Drops
	// bypass it, so the media type whitelist is what actually gates intake.
	PickerAccept = ".jpeg,.jpg,.png"

	statusAnalyzing   = "Analyzing Floor Plan..."
	statusRedirecting = "Redirecting..."
	promptSignedIn    = "Click to upload or just drag and drop"
	promptSignedOut   = "Sign in or sign up to upload"
)

var allowedMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/jpg":  true,
}

// IsAllowedMediaType reports whether files of the declared media type may be
// uploaded.
func IsAllowedMediaType(mediaType string) bool {
	return allowedMediaTypes[mediaType]
}

// Authorizer exposes the sign-in state of whoever drives the widget. It is
// consulted on every intake attempt and never mutated by the widget.
type Authorizer interface {
	IsAuthorized() bool
}

// CompleteFunc receives the encoded content of a finished upload.
type CompleteFunc func(encoded string)

type File struct {
	Name      string
	MediaType string
	Size      int64
	Open      func() (io.ReadCloser, error)
}

// NewFile wraps an in-memory payload.
func NewFile(name, mediaType string, data []byte) *File {
	return &File{
		Name:      name,
		MediaType: mediaType,
		Size:      int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

type Source string

const (
	SourcePicker Source = "picker"
	SourceDrop   Source = "drop"
)

func ParseSource(s string) (Source, bool) {
	switch Source(s) {
	case SourcePicker, "":
		return SourcePicker, true
	case SourceDrop:
		return SourceDrop, true
	default:
		return "", false
	}
}

type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseReading            Phase = "reading"
	PhaseAwaitingCompletion Phase = "awaiting_completion"
	PhaseCompleted          Phase = "completed"
)

// Result is the outcome of an intake attempt. ClearInput asks the caller to
// reset its file picker so that picking the same file again fires a new event.
type Result struct {
	Accepted   bool `json:"accepted"`
	ClearInput bool `json:"clearInput"`
}

type Snapshot struct {
	Cycle         uint64 `json:"cycle"`
	FileName      string `json:"fileName,omitempty"`
	Progress      int    `json:"progress"`
	Phase         Phase  `json:"phase"`
	Dragging      bool   `json:"dragging"`
	InputDisabled bool   `json:"inputDisabled"`
	Prompt        string `json:"prompt,omitempty"`
	StatusText    string `json:"statusText,omitempty"`
}

type Options struct {
	TickPeriod      time.Duration `mapstructure:"tick_period"`
	TickStep        int           `mapstructure:"tick_step"`
	CompletionDelay time.Duration `mapstructure:"completion_delay"`
}

func DefaultOptions() Options {
	return Options{
		TickPeriod:      DefaultTickPeriod,
		TickStep:        DefaultTickStep,
		CompletionDelay: DefaultCompletionDelay,
	}
}

func (o Options) Validate() error {
	if o.TickPeriod <= 0 {
		return ErrInvalidTickPeriod
	}
	if o.TickStep <= 0 {
		return ErrInvalidTickStep
	}
	if o.CompletionDelay < 0 {
		return ErrInvalidCompletionDelay
	}
	return nil
}

// TimeToComplete is how long the progress animation takes to reach
// MaxProgress.
func (o Options) TimeToComplete() time.Duration {
	ticks := (MaxProgress + o.TickStep - 1) / o.TickStep
	return time.Duration(ticks) * o.TickPeriod
}
