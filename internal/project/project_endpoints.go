package project

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/roomify/roomify_server/internal/user"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const serviceTimeout = 30 * time.Second

type ProjectEndpoints struct {
	projectService *ProjectService
}

func NewProjectEndpoints(projectService *ProjectService) *ProjectEndpoints {
	return &ProjectEndpoints{
		projectService: projectService,
	}
}

type CreateProjectRequest struct {
	SourceImage string `json:"sourceImage"`
	Visibility  string `json:"visibility"`
}

type CreateProjectResponse struct {
	Project *Project        `json:"project"`
	Path    string          `json:"path"`
	State   VisualizerState `json:"state"`
}

// CreateProject handles POST /projects
func (pe *ProjectEndpoints) CreateProject(ctx *fasthttp.RequestCtx) {
	authenticatedUser, ok := authenticated(ctx)
	if !ok {
		return
	}

	var req CreateProjectRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		log.Error().Err(err).Msg("Failed to parse request body")
		ctx.Error("Invalid request body", fasthttp.StatusBadRequest)
		return
	}
	if req.SourceImage == "" {
		ctx.Error("Source image is required", fasthttp.StatusBadRequest)
		return
	}
	visibility, ok := ParseVisibility(req.Visibility)
	if !ok {
		ctx.Error("Invalid visibility", fasthttp.StatusBadRequest)
		return
	}

	serviceCtx, cancel := serviceContext()
	defer cancel()
	p, err := pe.projectService.Create(serviceCtx, authenticatedUser.ID, req.SourceImage, visibility)
	if err != nil {
		writeError(ctx, err, "Failed to create project")
		return
	}

	ctx.SetStatusCode(fasthttp.StatusCreated)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(CreateProjectResponse{
		Project: p,
		Path:    p.VisualizerPath(),
		State:   p.VisualizerState(),
	})
}

// ListProjects handles GET /projects
func (pe *ProjectEndpoints) ListProjects(ctx *fasthttp.RequestCtx) {
	authenticatedUser, ok := authenticated(ctx)
	if !ok {
		return
	}

	serviceCtx, cancel := serviceContext()
	defer cancel()
	projects, err := pe.projectService.List(serviceCtx, authenticatedUser.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list projects")
		ctx.Error("Failed to list projects", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(projects)
}

// GetProject handles GET /projects/{id}
func (pe *ProjectEndpoints) GetProject(ctx *fasthttp.RequestCtx) {
	authenticatedUser, ok := authenticated(ctx)
	if !ok {
		return
	}

	projectID, _ := ctx.UserValue("projectID").(string)
	serviceCtx, cancel := serviceContext()
	defer cancel()
	p, err := pe.projectService.Get(serviceCtx, projectID, authenticatedUser.ID)
	if err != nil {
		writeError(ctx, err, "Failed to get project")
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(p)
}

// DeleteProject handles DELETE /projects/{id}
func (pe *ProjectEndpoints) DeleteProject(ctx *fasthttp.RequestCtx) {
	authenticatedUser, ok := authenticated(ctx)
	if !ok {
		return
	}

	projectID, _ := ctx.UserValue("projectID").(string)
	serviceCtx, cancel := serviceContext()
	defer cancel()
	if err := pe.projectService.Delete(serviceCtx, projectID, authenticatedUser.ID); err != nil {
		writeError(ctx, err, "Failed to delete project")
		return
	}

	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// GetSource handles GET /projects/{id}/source. Public projects are served
// without a user.
func (pe *ProjectEndpoints) GetSource(ctx *fasthttp.RequestCtx) {
	projectID, _ := ctx.UserValue("projectID").(string)
	serviceCtx, cancel := serviceContext()
	defer cancel()
	reader, p, err := pe.projectService.OpenSource(serviceCtx, projectID, requesterID(ctx))
	if err != nil {
		writeError(ctx, err, "Failed to open source image")
		return
	}
	writeImage(ctx, reader, p.ContentType)
}

// GetThumbnail handles GET /projects/{id}/thumbnail
func (pe *ProjectEndpoints) GetThumbnail(ctx *fasthttp.RequestCtx) {
	projectID, _ := ctx.UserValue("projectID").(string)
	serviceCtx, cancel := serviceContext()
	defer cancel()
	reader, p, err := pe.projectService.OpenThumbnail(serviceCtx, projectID, requesterID(ctx))
	if err != nil {
		writeError(ctx, err, "Failed to open thumbnail")
		return
	}
	writeImage(ctx, reader, p.ContentType)
}

func authenticated(ctx *fasthttp.RequestCtx) (*user.User, bool) {
	authenticatedUser, ok := ctx.UserValue("user").(*user.User)
	if !ok || authenticatedUser == nil {
		log.Error().Msg("Failed to get authenticated user from context")
		ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
		return nil, false
	}
	return authenticatedUser, true
}

// serviceContext bounds a service call. A *fasthttp.RequestCtx is not used as
// the parent since it only carries server shutdown.
func serviceContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), serviceTimeout)
}

func requesterID(ctx *fasthttp.RequestCtx) string {
	if authenticatedUser, ok := ctx.UserValue("user").(*user.User); ok && authenticatedUser != nil {
		return authenticatedUser.ID
	}
	return ""
}

func writeImage(ctx *fasthttp.RequestCtx, reader io.ReadCloser, contentType string) {
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read image")
		ctx.Error("Failed to read image", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType(contentType)
	ctx.Response.Header.Set("Cache-Control", "private, max-age=3600")
	ctx.SetBody(data)
}

func writeError(ctx *fasthttp.RequestCtx, err error, msg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		ctx.Error("Project not found", fasthttp.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		ctx.Error("Forbidden", fasthttp.StatusForbidden)
	case errors.Is(err, ErrUnsupportedMediaType):
		ctx.Error("Unsupported media type", fasthttp.StatusUnsupportedMediaType)
	case errors.Is(err, ErrTooLarge):
		ctx.Error("Source image too large", fasthttp.StatusRequestEntityTooLarge)
	case errors.Is(err, ErrInvalidContent), errors.Is(err, ErrOwnerRequired):
		ctx.Error("Invalid source image", fasthttp.StatusBadRequest)
	default:
		log.Error().Err(err).Msg(msg)
		ctx.Error(msg, fasthttp.StatusInternalServerError)
	}
}
