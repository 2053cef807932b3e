package status

import (
	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
)

// SessionStats reports live upload sessions.
type SessionStats interface {
	GetStats() (totalClients, signedIn int)
}

type StatusEndpoints struct {
	version  string
	sessions SessionStats
}

func NewEndpoints(version string, sessions SessionStats) *StatusEndpoints {
	return &StatusEndpoints{
		version:  version,
		sessions: sessions,
	}
}

type StatusResponse struct {
	Health           string `json:"health"`
	Version          string `json:"version"`
	Sessions         int    `json:"sessions"`
	SignedInSessions int    `json:"signedInSessions"`
}

func (se *StatusEndpoints) Status(ctx *fasthttp.RequestCtx) {
	response := StatusResponse{
		Health:  "OK",
		Version: se.version,
	}
	if se.sessions != nil {
		response.Sessions, response.SignedInSessions = se.sessions.GetStats()
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)

	responseJSON, err := json.Marshal(response)
	if err != nil {
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetBody(responseJSON)
}
