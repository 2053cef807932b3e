package websocket

import (
	"github.com/roomify/roomify_server/internal/project"
	"github.com/roomify/roomify_server/internal/upload"
	"github.com/roomify/roomify_server/internal/user"
)

type MessageType string

const (
	MessageTypeSignIn      MessageType = "sign_in"
	MessageTypeSignOut     MessageType = "sign_out"
	MessageTypeRefreshAuth MessageType = "refresh_auth"
	MessageTypeDragEnter   MessageType = "drag_enter"
	MessageTypeDragOver    MessageType = "drag_over"
	MessageTypeDragLeave   MessageType = "drag_leave"
	MessageTypePing        MessageType = "ping"

	MessageTypeConnected     MessageType = "connected"
	MessageTypeUploadState   MessageType = "upload_state"
	MessageTypeAuthState     MessageType = "auth_state"
	MessageTypeNavigate      MessageType = "navigate"
	MessageTypeProjectFailed MessageType = "project_failed"
	MessageTypePong          MessageType = "pong"
	MessageTypeError         MessageType = "error"
)

type IncomingMessage struct {
	Type  MessageType `json:"type"`
	Token string      `json:"token,omitempty"`
}

type OutgoingMessage struct {
	Type  MessageType `json:"type"`
	Error string      `json:"error,omitempty"`
}

type ConnectedMessage struct {
	Type      MessageType     `json:"type"`
	SessionID string          `json:"sessionId"`
	Auth      user.AuthState  `json:"auth"`
	Upload    upload.Snapshot `json:"upload"`
	Accept    string          `json:"accept"`
}

type UploadStateMessage struct {
	Type  MessageType     `json:"type"`
	State upload.Snapshot `json:"state"`
}

type AuthStateMessage struct {
	Type MessageType    `json:"type"`
	Auth user.AuthState `json:"auth"`
}

// NavigateMessage tells the browser to open the visualizer for a new project.
type NavigateMessage struct {
	Type      MessageType             `json:"type"`
	Path      string                  `json:"path"`
	ProjectID string                  `json:"projectId"`
	State     project.VisualizerState `json:"state"`
}

// FileResponse answers a file posted to a session.
type FileResponse struct {
	upload.Result
	State upload.Snapshot `json:"state"`
}
