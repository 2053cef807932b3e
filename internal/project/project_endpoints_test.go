package project

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/roomify/roomify_server/internal/dataurl"
	"github.com/roomify/roomify_server/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func authenticatedRequest(userID string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.SetUserValue("user", &user.User{ID: userID, Username: userID})
	return ctx
}

func TestProjectEndpoints_CreateProject_ShouldReturnVisualizerTarget(t *testing.T) {
	// given
	service, _, _ := newTestProjectService(t, time.UnixMilli(1000))
	endpoints := NewProjectEndpoints(service)
	body, err := json.Marshal(CreateProjectRequest{SourceImage: dataurl.Encode("image/png", floorPlanPNG(t, 10, 10))})
	require.NoError(t, err)

	ctx := authenticatedRequest("owner")
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.SetBody(body)

	// when
	endpoints.CreateProject(ctx)

	// then
	assert.Equal(t, fasthttp.StatusCreated, ctx.Response.StatusCode())
	var response CreateProjectResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
	assert.Equal(t, "/visualizer/1000", response.Path)
	assert.Equal(t, "Residence 1000", response.State.Name)
	assert.Nil(t, response.State.InitialRendered)
}

func TestProjectEndpoints_CreateProject_ShouldRejectUnsupportedMediaType(t *testing.T) {
	// given
	service, _, _ := newTestProjectService(t, time.UnixMilli(1000))
	endpoints := NewProjectEndpoints(service)
	body, err := json.Marshal(CreateProjectRequest{SourceImage: dataurl.Encode("image/gif", []byte("GIF89a"))})
	require.NoError(t, err)

	ctx := authenticatedRequest("owner")
	ctx.Request.SetBody(body)

	// when
	endpoints.CreateProject(ctx)

	// then
	assert.Equal(t, fasthttp.StatusUnsupportedMediaType, ctx.Response.StatusCode())
}

func TestProjectEndpoints_GetProject_ShouldMapErrors(t *testing.T) {
	// given
	service, _, _ := newTestProjectService(t, time.UnixMilli(1000))
	endpoints := NewProjectEndpoints(service)
	p, err := service.Create(context.Background(), "owner", dataurl.Encode("image/png", floorPlanPNG(t, 10, 10)), VisibilityPrivate)
	require.NoError(t, err)

	tests := []struct {
		name       string
		userID     string
		projectID  string
		wantStatus int
	}{
		{name: "owner", userID: "owner", projectID: p.ID, wantStatus: fasthttp.StatusOK},
		{name: "stranger", userID: "stranger", projectID: p.ID, wantStatus: fasthttp.StatusForbidden},
		{name: "missing", userID: "owner", projectID: "1", wantStatus: fasthttp.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := authenticatedRequest(tt.userID)
			ctx.SetUserValue("projectID", tt.projectID)

			endpoints.GetProject(ctx)

			assert.Equal(t, tt.wantStatus, ctx.Response.StatusCode())
		})
	}
}

func TestProjectEndpoints_GetThumbnail_ShouldServeJPEG(t *testing.T) {
	// given
	service, _, _ := newTestProjectService(t, time.UnixMilli(1000))
	endpoints := NewProjectEndpoints(service)
	p, err := service.Create(context.Background(), "owner", dataurl.Encode("image/png", floorPlanPNG(t, 10, 10)), VisibilityPrivate)
	require.NoError(t, err)

	ctx := authenticatedRequest("owner")
	ctx.SetUserValue("projectID", p.ID)

	// when
	endpoints.GetThumbnail(ctx)

	// then
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "image/jpeg", string(ctx.Response.Header.ContentType()))
	assert.NotEmpty(t, ctx.Response.Body())
}

func TestProjectEndpoints_ShouldRequireUser(t *testing.T) {
	// given
	service, _, _ := newTestProjectService(t, time.UnixMilli(1000))
	endpoints := NewProjectEndpoints(service)
	ctx := &fasthttp.RequestCtx{}

	// when
	endpoints.ListProjects(ctx)

	// then
	assert.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
}

func TestProjectEndpoints_GetSource_ShouldServePublicProjectsAnonymously(t *testing.T) {
	// given
	service, _, _ := newTestProjectService(t, time.UnixMilli(1000))
	endpoints := NewProjectEndpoints(service)
	encoded := dataurl.Encode("image/png", floorPlanPNG(t, 10, 10))
	public, err := service.Create(context.Background(), "owner", encoded, VisibilityPublic)
	require.NoError(t, err)
	service.timeNow = func() time.Time { return time.UnixMilli(2000) }
	private, err := service.Create(context.Background(), "owner", encoded, VisibilityPrivate)
	require.NoError(t, err)

	// when
	publicCtx := &fasthttp.RequestCtx{}
	publicCtx.SetUserValue("projectID", public.ID)
	endpoints.GetSource(publicCtx)
	privateCtx := &fasthttp.RequestCtx{}
	privateCtx.SetUserValue("projectID", private.ID)
	endpoints.GetSource(privateCtx)

	// then
	assert.Equal(t, fasthttp.StatusOK, publicCtx.Response.StatusCode())
	assert.Equal(t, "image/png", string(publicCtx.Response.Header.ContentType()))
	assert.Equal(t, fasthttp.StatusForbidden, privateCtx.Response.StatusCode())
}
