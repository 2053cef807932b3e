package middleware

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

// RequestLogger logs every request after it has been served. The websocket
// upgrade is logged when the socket is handed over, not when it closes.
func RequestLogger(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()

		next(ctx)

		status := ctx.Response.StatusCode()
		event := log.Debug()
		if status >= fasthttp.StatusInternalServerError {
			event = log.Warn()
		}
		event.
			Str("method", string(ctx.Method())).
			Str("path", string(ctx.Path())).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("[HTTP] Request served")
	}
}
