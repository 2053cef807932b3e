package websocket

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fasthttp/websocket"
	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/roomify/roomify_server/internal/clock"
	"github.com/roomify/roomify_server/internal/upload"
	"github.com/roomify/roomify_server/internal/user"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const DefaultMaxFileBytes = 50 * 1024 * 1024

var errFileTooLarge = errors.New("file too large")

type Config struct {
	Upload       upload.Options `mapstructure:"upload"`
	MaxFileBytes int64          `mapstructure:"max_file_bytes"`
}

type Handler struct {
	hub         *Hub
	userService *user.UserService
	projects    ProjectCreator
	config      Config
	clock       clock.Clock
	reader      upload.ContentReader
	upgrader    websocket.FastHTTPUpgrader
}

// NewHandler serves upload sessions. allowOrigin decides which browser
// origins may open a socket; requests without an Origin header are allowed.
func NewHandler(hub *Hub, userService *user.UserService, projects ProjectCreator, config Config, allowOrigin func(origin string) bool) (*Handler, error) {
	if err := config.Upload.Validate(); err != nil {
		return nil, fmt.Errorf("invalid upload options: %w", err)
	}
	if config.MaxFileBytes <= 0 {
		config.MaxFileBytes = DefaultMaxFileBytes
	}

	return &Handler{
		hub:         hub,
		userService: userService,
		projects:    projects,
		config:      config,
		clock:       clock.Real{},
		reader:      upload.DataURLReader{},
		upgrader: websocket.FastHTTPUpgrader{
			CheckOrigin: func(ctx *fasthttp.RequestCtx) bool {
				origin := string(ctx.Request.Header.Peek("Origin"))
				return origin == "" || allowOrigin == nil || allowOrigin(origin)
			},
		},
	}, nil
}

// newSession builds a signed-out session with its own widget. The socket is
// attached once the upgrade succeeds.
func (h *Handler) newSession() (*Client, error) {
	auth := user.NewAuthContext(h.userService)
	client := newClient(uuid.NewString(), h.hub, nil, auth, h.projects)

	widget, err := upload.New(auth, h.reader, h.clock, h.config.Upload, client.completeUpload,
		upload.WithObserver(client.pushUploadState),
		upload.WithLogger(client.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload widget: %w", err)
	}
	client.widget = widget
	return client, nil
}

// HandleFastHTTP upgrades GET /ws. A token in the query string or the
// Authorization header signs the session in straight away; without one the
// session starts signed out.
func (h *Handler) HandleFastHTTP(ctx *fasthttp.RequestCtx) {
	token := string(ctx.QueryArgs().Peek("token"))
	if token == "" {
		authHeader := string(ctx.Request.Header.Peek("Authorization"))
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}

	client, err := h.newSession()
	if err != nil {
		log.Error().Err(err).Msg("[WS] Failed to create session")
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	if token != "" {
		if err := client.auth.SignIn(token); err != nil {
			log.Debug().Err(err).Msg("[WS] Connection rejected: invalid token")
			ctx.Error("Unauthorized: invalid token", fasthttp.StatusUnauthorized)
			return
		}
	}

	err = h.upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		client.conn = conn
		if !h.hub.Register(client) {
			client.widget.Close()
			conn.Close()
			return
		}

		log.Info().
			Str("sessionId", client.id).
			Bool("signedIn", client.auth.IsSignedIn()).
			Msg("[WS] Client connected")

		writeDone := make(chan struct{})
		go func() {
			defer close(writeDone)
			client.WritePump()
		}()
		client.ReadPump() // Blocks until disconnect

		// fasthttp releases conn once this callback returns.
		<-writeDone
	})

	if err != nil {
		log.Error().Err(err).Msg("[WS] Failed to upgrade connection")
		return
	}
}

// HandleFile handles POST /sessions/{id}/files, handing a multipart file to
// the session's widget. The form carries the file as "file" and the intake
// path as "source" (picker or drop).
func (h *Handler) HandleFile(ctx *fasthttp.RequestCtx) {
	sessionID, _ := ctx.UserValue("sessionID").(string)
	client, ok := h.hub.Session(sessionID)
	if !ok {
		ctx.Error("Session not found", fasthttp.StatusNotFound)
		return
	}

	source, ok := upload.ParseSource(string(ctx.FormValue("source")))
	if !ok {
		ctx.Error("Invalid source", fasthttp.StatusBadRequest)
		return
	}

	f, err := h.readFormFile(ctx)
	if errors.Is(err, errFileTooLarge) {
		ctx.Error("File too large", fasthttp.StatusRequestEntityTooLarge)
		return
	}
	if err != nil {
		log.Debug().Err(err).Str("sessionId", sessionID).Msg("[WS] Invalid file upload")
		ctx.Error("File is required", fasthttp.StatusBadRequest)
		return
	}

	result := client.widget.Accept(f, source)

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(FileResponse{
		Result: result,
		State:  client.widget.Snapshot(),
	})
}

// readFormFile copies the posted file into memory, since the multipart form
// is released when the request ends and the widget reads asynchronously.
func (h *Handler) readFormFile(ctx *fasthttp.RequestCtx) (*upload.File, error) {
	header, err := ctx.FormFile("file")
	if err != nil {
		return nil, err
	}
	if header.Size > h.config.MaxFileBytes {
		return nil, errFileTooLarge
	}

	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.config.MaxFileBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > h.config.MaxFileBytes {
		return nil, errFileTooLarge
	}

	return upload.NewFile(header.Filename, declaredMediaType(header.Header.Get("Content-Type"), data), data), nil
}

// declaredMediaType strips parameters from the part's content type and falls
// back to sniffing when the browser sent none.
func declaredMediaType(contentType string, data []byte) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType != "" && mediaType != "application/octet-stream" {
		return mediaType
	}

	mediaType, _, _ = strings.Cut(mimetype.Detect(data).String(), ";")
	return mediaType
}
