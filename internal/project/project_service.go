package project

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/roomify/roomify_server/internal/dataurl"
	"github.com/roomify/roomify_server/internal/storage"
	"github.com/roomify/roomify_server/internal/upload"
	"github.com/rs/zerolog/log"
)

const (
	DefaultThumbnailSize  = 320
	DefaultMaxSourceBytes = 50 * 1024 * 1024

	namePrefix         = "Residence "
	maxIDAttempts      = 5
	thumbnailMediaType = "image/jpeg"
)

type Config struct {
	// ExternalURL prefixes the image links handed to browsers.
	ExternalURL    string `mapstructure:"external_url"`
	ThumbnailSize  int    `mapstructure:"thumbnail_size"`
	MaxSourceBytes int64  `mapstructure:"max_source_bytes"`
}

type ProjectService struct {
	repo    Repository
	backend storage.Backend
	config  Config
	timeNow func() time.Time
}

func NewProjectService(repo Repository, backend storage.Backend, config Config) *ProjectService {
	if config.ThumbnailSize <= 0 {
		config.ThumbnailSize = DefaultThumbnailSize
	}
	if config.MaxSourceBytes <= 0 {
		config.MaxSourceBytes = DefaultMaxSourceBytes
	}
	config.ExternalURL = strings.TrimSuffix(config.ExternalURL, "/")

	return &ProjectService{
		repo:    repo,
		backend: backend,
		config:  config,
		timeNow: time.Now,
	}
}

// Create stores the floor plan carried by encoded, a base64 data url, and
// records a new project owned by ownerID.
func (s *ProjectService) Create(ctx context.Context, ownerID, encoded string, visibility Visibility) (*Project, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	declared, data, err := dataurl.Decode(encoded)
	if err != nil {
		return nil, errors.Join(ErrInvalidContent, err)
	}
	if !upload.IsAllowedMediaType(declared) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, declared)
	}
	if int64(len(data)) > s.config.MaxSourceBytes {
		return nil, ErrTooLarge
	}

	detected := mimetype.Detect(data)
	if !detected.Is("image/png") && !detected.Is("image/jpeg") {
		return nil, fmt.Errorf("%w: content is %s", ErrUnsupportedMediaType, detected.String())
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Join(ErrInvalidContent, err)
	}

	thumbnail, err := s.renderThumbnail(img)
	if err != nil {
		return nil, fmt.Errorf("failed to render thumbnail: %w", err)
	}

	prefix := "projects/" + uuid.NewString()
	p := &Project{
		OwnerID:       ownerID,
		Visibility:    visibility,
		ContentType:   detected.String(),
		SizeBytes:     int64(len(data)),
		Width:         img.Bounds().Dx(),
		Height:        img.Bounds().Dy(),
		SourcePath:    prefix + "/source" + detected.Extension(),
		ThumbnailPath: prefix + "/thumbnail.jpg",
	}
	if p.Visibility == "" {
		p.Visibility = VisibilityPrivate
	}

	if err := s.backend.Store(ctx, p.SourcePath, bytes.NewReader(data), p.SizeBytes, p.ContentType); err != nil {
		return nil, fmt.Errorf("failed to store source image: %w", err)
	}
	if err := s.backend.Store(ctx, p.ThumbnailPath, bytes.NewReader(thumbnail), int64(len(thumbnail)), thumbnailMediaType); err != nil {
		s.deleteBlobs(ctx, p)
		return nil, fmt.Errorf("failed to store thumbnail: %w", err)
	}

	if err := s.insert(ctx, p); err != nil {
		s.deleteBlobs(ctx, p)
		return nil, err
	}

	log.Info().
		Str("projectID", p.ID).
		Str("ownerID", ownerID).
		Str("contentType", p.ContentType).
		Int64("size", p.SizeBytes).
		Msg("Project created")

	s.populateURLs(p)
	return p, nil
}

// insert assigns the project a millisecond timestamp id, moving to the next
// free millisecond when two uploads land in the same one.
func (s *ProjectService) insert(ctx context.Context, p *Project) error {
	ts := s.timeNow().UnixMilli()
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		p.Timestamp = ts + int64(attempt)
		p.ID = strconv.FormatInt(p.Timestamp, 10)
		p.Name = namePrefix + p.ID

		err := s.repo.Create(ctx, p)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrAlreadyExists) {
			return fmt.Errorf("failed to save project: %w", err)
		}
	}
	return fmt.Errorf("failed to save project: %w", ErrAlreadyExists)
}

func (s *ProjectService) renderThumbnail(img image.Image) ([]byte, error) {
	thumb := imaging.Fit(img, s.config.ThumbnailSize, s.config.ThumbnailSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *ProjectService) Get(ctx context.Context, id, requesterID string) (*Project, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.readableBy(requesterID) {
		return nil, ErrForbidden
	}

	s.populateURLs(p)
	return p, nil
}

func (s *ProjectService) List(ctx context.Context, ownerID string) ([]*Project, error) {
	projects, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []*Project{}
	}

	for _, p := range projects {
		s.populateURLs(p)
	}
	return projects, nil
}

func (s *ProjectService) Delete(ctx context.Context, id, requesterID string) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.OwnerID != requesterID {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	s.deleteBlobs(ctx, p)

	log.Info().Str("projectID", id).Msg("Project deleted")
	return nil
}

// OpenSource streams the uploaded floor plan. The caller closes the reader.
func (s *ProjectService) OpenSource(ctx context.Context, id, requesterID string) (io.ReadCloser, *Project, error) {
	return s.open(ctx, id, requesterID, func(p *Project) (string, string) {
		return p.SourcePath, p.ContentType
	})
}

func (s *ProjectService) OpenThumbnail(ctx context.Context, id, requesterID string) (io.ReadCloser, *Project, error) {
	return s.open(ctx, id, requesterID, func(p *Project) (string, string) {
		return p.ThumbnailPath, thumbnailMediaType
	})
}

func (s *ProjectService) open(ctx context.Context, id, requesterID string, pick func(*Project) (string, string)) (io.ReadCloser, *Project, error) {
	p, err := s.Get(ctx, id, requesterID)
	if err != nil {
		return nil, nil, err
	}

	path, contentType := pick(p)
	if path == "" {
		return nil, nil, ErrNotFound
	}

	reader, err := s.backend.Get(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open image: %w", err)
	}

	p.ContentType = contentType
	return reader, p, nil
}

func (s *ProjectService) deleteBlobs(ctx context.Context, p *Project) {
	for _, path := range []string{p.SourcePath, p.ThumbnailPath} {
		if path == "" {
			continue
		}
		if err := s.backend.Delete(ctx, path); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Warn().Err(err).Str("path", path).Msg("Failed to delete project image")
		}
	}
}

func (s *ProjectService) populateURLs(p *Project) {
	base := s.config.ExternalURL + "/projects/" + p.ID
	p.SourceImage = base + "/source"
	if p.ThumbnailPath != "" {
		p.ThumbnailURL = base + "/thumbnail"
	}
}
