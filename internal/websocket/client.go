package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/roomify/roomify_server/internal/project"
	"github.com/roomify/roomify_server/internal/upload"
	"github.com/roomify/roomify_server/internal/user"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	writeTimeout   = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 16 * 1024
	sendBufferSize = 256

	projectCreateTimeout = 30 * time.Second
)

// ProjectCreator turns a finished upload into a project.
type ProjectCreator interface {
	Create(ctx context.Context, ownerID, encoded string, visibility project.Visibility) (*project.Project, error)
}

// Client is one browser session: a socket, its sign-in state and the upload
// widget it drives. The widget lives exactly as long as the socket.
type Client struct {
	id       string
	hub      *Hub
	conn     *websocket.Conn
	auth     *user.AuthContext
	widget   *upload.Widget
	projects ProjectCreator
	logger   zerolog.Logger

	mu     sync.Mutex
	send   chan interface{}
	closed bool
}

func newClient(id string, hub *Hub, conn *websocket.Conn, auth *user.AuthContext, projects ProjectCreator) *Client {
	return &Client{
		id:       id,
		hub:      hub,
		conn:     conn,
		auth:     auth,
		projects: projects,
		logger:   log.With().Str("sessionId", id).Logger(),
		send:     make(chan interface{}, sendBufferSize),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Widget() *upload.Widget {
	return c.widget
}

// enqueue hands msg to the write pump. Messages are dropped when the buffer is
// full or the session has been unregistered.
func (c *Client) enqueue(msg interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		c.logger.Warn().Msg("[WS] Client send buffer full, dropping message")
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) connectedMessage() *ConnectedMessage {
	return &ConnectedMessage{
		Type:      MessageTypeConnected,
		SessionID: c.id,
		Auth:      c.auth.State(),
		Upload:    c.widget.Snapshot(),
		Accept:    upload.PickerAccept,
	}
}

func (c *Client) pushUploadState(s upload.Snapshot) {
	c.enqueue(&UploadStateMessage{Type: MessageTypeUploadState, State: s})
}

func (c *Client) pushAuthState() {
	c.enqueue(&AuthStateMessage{Type: MessageTypeAuthState, Auth: c.auth.State()})
	// The prompt and input state follow the sign-in state.
	c.pushUploadState(c.widget.Snapshot())
}

// completeUpload runs when the widget's completion timer fires.
func (c *Client) completeUpload(encoded string) {
	owner := c.auth.User()
	if owner == nil {
		c.logger.Warn().Msg("[WS] Upload completed after sign out, project not created")
		c.enqueue(&OutgoingMessage{Type: MessageTypeProjectFailed, Error: "Sign in to save your floor plan"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), projectCreateTimeout)
	defer cancel()

	p, err := c.projects.Create(ctx, owner.ID, encoded, project.VisibilityPrivate)
	if err != nil {
		c.logger.Error().Err(err).Str("userId", owner.ID).Msg("[WS] Failed to create project")
		c.enqueue(&OutgoingMessage{Type: MessageTypeProjectFailed, Error: "Failed to create project"})
		return
	}

	c.logger.Info().Str("projectId", p.ID).Str("userId", owner.ID).Msg("[WS] Project created, navigating")
	c.enqueue(&NavigateMessage{
		Type:      MessageTypeNavigate,
		Path:      p.VisualizerPath(),
		ProjectID: p.ID,
		State:     p.VisualizerState(),
	})
}

func (c *Client) ReadPump() {
	defer func() {
		c.widget.Close()
		c.hub.Unregister(c)
		// Ends the write pump even when the hub has already stopped.
		c.closeSend()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg IncomingMessage
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Msg("[WS] Read error")
			} else {
				c.logger.Debug().Msg("[WS] Client disconnected")
			}
			return
		}

		c.handleMessage(&msg)
	}
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	switch msg.Type {
	case MessageTypeSignIn:
		if err := c.auth.SignIn(msg.Token); err != nil {
			c.logger.Debug().Err(err).Msg("[WS] Sign in rejected")
			c.enqueue(&OutgoingMessage{Type: MessageTypeError, Error: "invalid token"})
			return
		}
		c.pushAuthState()

	case MessageTypeSignOut:
		c.auth.SignOut()
		c.pushAuthState()

	case MessageTypeRefreshAuth:
		if err := c.auth.Refresh(); err != nil {
			c.logger.Debug().Err(err).Msg("[WS] Session token no longer valid")
		}
		c.pushAuthState()

	case MessageTypeDragEnter:
		c.widget.DragEnter()

	case MessageTypeDragOver:
		c.widget.DragOver()

	case MessageTypeDragLeave:
		c.widget.DragLeave()

	case MessageTypePing:
		c.enqueue(&OutgoingMessage{Type: MessageTypePong})

	default:
		c.logger.Debug().
			Str("type", string(msg.Type)).
			Msg("[WS] Unknown message type")
		c.enqueue(&OutgoingMessage{Type: MessageTypeError, Error: "unknown message type"})
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Debug().Err(err).Msg("[WS] Write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug().Err(err).Msg("[WS] Ping error")
				return
			}
		}
	}
}
