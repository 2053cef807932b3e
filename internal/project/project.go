package project

import "errors"

var (
	ErrNotFound             = errors.New("project not found")
	ErrAlreadyExists        = errors.New("project already exists")
	ErrForbidden            = errors.New("forbidden")
	ErrOwnerRequired        = errors.New("owner is required")
	ErrInvalidContent       = errors.New("invalid source image")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrTooLarge             = errors.New("source image too large")
)

type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

func ParseVisibility(s string) (Visibility, bool) {
	switch Visibility(s) {
	case VisibilityPrivate, "":
		return VisibilityPrivate, true
	case VisibilityPublic:
		return VisibilityPublic, true
	default:
		return "", false
	}
}

// Project is one uploaded floor plan and, eventually, its rendering.
type Project struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	OwnerID       string     `json:"ownerId"`
	Visibility    Visibility `json:"visibility"`
	ContentType   string     `json:"contentType"`
	SizeBytes     int64      `json:"sizeBytes"`
	Width         int        `json:"width"`
	Height        int        `json:"height"`
	SourcePath    string     `json:"-"`
	ThumbnailPath string     `json:"-"`
	Timestamp     int64      `json:"timestamp"`

	SourceImage   string  `json:"sourceImage"`
	RenderedImage *string `json:"renderedImage"` // nil until a rendering is attached
	ThumbnailURL  string  `json:"thumbnailUrl,omitempty"`
}

// VisualizerState is what the browser needs to open the visualizer for a
// freshly created project without fetching it again.
type VisualizerState struct {
	InitialImage    string  `json:"initialImage"`
	InitialRendered *string `json:"initialRendered"`
	Name            string  `json:"name"`
}

func (p *Project) VisualizerPath() string {
	return "/visualizer/" + p.ID
}

func (p *Project) VisualizerState() VisualizerState {
	return VisualizerState{
		InitialImage:    p.SourceImage,
		InitialRendered: p.RenderedImage,
		Name:            p.Name,
	}
}

func (p *Project) readableBy(userID string) bool {
	return p.Visibility == VisibilityPublic || p.OwnerID == userID
}
