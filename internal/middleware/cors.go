package middleware

import (
	"regexp"

	"github.com/valyala/fasthttp"
)

const (
	corsAllowMethods  = "GET, POST, OPTIONS"
	corsAllowHeaders  = "Authorization, Content-Type, Range, Idempotency-Key"
	corsExposeHeaders = "Content-Length, Content-Range, Accept-Ranges"
	corsMaxAge        = "86400"
)

var localhostOrigin = regexp.MustCompile(`^https?://localhost:\d+$`)

// CORSMiddleware lets browser players on other origins stream and report ad
// events. An empty origin list means any origin.
type CORSMiddleware struct {
	allowedOrigins []string
	wildcard       bool
}

func NewCORSMiddleware(allowedOrigins []string) *CORSMiddleware {
	wildcard := len(allowedOrigins) == 0
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
		}
	}
	return &CORSMiddleware{
		allowedOrigins: allowedOrigins,
		wildcard:       wildcard,
	}
}

func (cm *CORSMiddleware) Handle(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		origin := string(ctx.Request.Header.Peek("Origin"))

		switch {
		case origin != "" && cm.isOriginAllowed(origin):
			// Credentials require the concrete origin, never "*".
			ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
			ctx.Response.Header.Set("Access-Control-Allow-Credentials", "true")
			ctx.Response.Header.Add("Vary", "Origin")
		case cm.wildcard:
			ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
		}

		ctx.Response.Header.Set("Access-Control-Allow-Methods", corsAllowMethods)
		ctx.Response.Header.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		ctx.Response.Header.Set("Access-Control-Expose-Headers", corsExposeHeaders)
		ctx.Response.Header.Set("Access-Control-Max-Age", corsMaxAge)

		if ctx.IsOptions() {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		next(ctx)
	}
}

// isOriginAllowed matches exact origins. "http://localhost:*" and
// "https://localhost:*" match any port; with a wildcard list only localhost
// origins get credentialed access.
func (cm *CORSMiddleware) isOriginAllowed(origin string) bool {
	for _, allowed := range cm.allowedOrigins {
		if allowed == origin {
			return true
		}
		if (allowed == "http://localhost:*" || allowed == "https://localhost:*") && localhostOrigin.MatchString(origin) {
			return true
		}
	}
	return cm.wildcard && localhostOrigin.MatchString(origin)
}
