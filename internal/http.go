package internal

import (
	"strings"

	"github.com/roomify/roomify_server/internal/health"
	"github.com/roomify/roomify_server/internal/middleware"
	"github.com/roomify/roomify_server/internal/project"
	"github.com/roomify/roomify_server/internal/status"
	"github.com/roomify/roomify_server/internal/user"
	"github.com/roomify/roomify_server/internal/websocket"
	"github.com/valyala/fasthttp"
)

func NewRequestHandler(corsMiddleware *middleware.CORSMiddleware, userService *user.UserService, healthEndpoints *health.HealthEndpoints, statusEndpoints *status.StatusEndpoints, projectEndpoints *project.ProjectEndpoints, wsHandler *websocket.Handler) fasthttp.RequestHandler {
	authMiddleware := middleware.NewAuthMiddleware(userService)

	handler := func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		method := string(ctx.Method())

		switch {
		case path == "/health":
			healthEndpoints.Health(ctx)
		case path == "/status":
			authMiddleware.RequireAuth(statusEndpoints.Status)(ctx)

		case path == "/ws":
			wsHandler.HandleFastHTTP(ctx)

		case strings.HasPrefix(path, "/sessions/"):
			parts := strings.Split(path, "/")
			if len(parts) == 4 && parts[3] == "files" && parts[2] != "" {
				ctx.SetUserValue("sessionID", parts[2])
				if method == fasthttp.MethodPost {
					wsHandler.HandleFile(ctx)
				} else {
					ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
				}
			} else {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
			}

		case path == "/projects":
			switch method {
			case fasthttp.MethodGet:
				authMiddleware.RequireAuth(projectEndpoints.ListProjects)(ctx)
			case fasthttp.MethodPost:
				authMiddleware.RequireAuth(projectEndpoints.CreateProject)(ctx)
			default:
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}
		case strings.HasPrefix(path, "/projects/"):
			parts := strings.Split(path, "/")
			if len(parts) < 3 || parts[2] == "" {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
				return
			}
			ctx.SetUserValue("projectID", parts[2])

			switch {
			case len(parts) == 3 && method == fasthttp.MethodGet:
				authMiddleware.RequireAuth(projectEndpoints.GetProject)(ctx)
			case len(parts) == 3 && method == fasthttp.MethodDelete:
				authMiddleware.RequireAuth(projectEndpoints.DeleteProject)(ctx)
			case len(parts) == 4 && parts[3] == "source" && method == fasthttp.MethodGet:
				authMiddleware.OptionalAuth(projectEndpoints.GetSource)(ctx)
			case len(parts) == 4 && parts[3] == "thumbnail" && method == fasthttp.MethodGet:
				authMiddleware.OptionalAuth(projectEndpoints.GetThumbnail)(ctx)
			case len(parts) == 3 || (len(parts) == 4 && (parts[3] == "source" || parts[3] == "thumbnail")):
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			default:
				ctx.Error("Not Found", fasthttp.StatusNotFound)
			}

		default:
			ctx.Error("Not Found", fasthttp.StatusNotFound)
		}
	}

	return corsMiddleware.Handle(middleware.RequestLogger(handler))
}
