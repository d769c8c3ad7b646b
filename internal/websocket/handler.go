package websocket

import (
	"strings"

	"github.com/fasthttp/websocket"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"github.com/videostream/videostream_server/internal/user"
)

type Handler struct {
	hub         *Hub
	userService *user.UserService
	upgrader    websocket.FastHTTPUpgrader
}

// NewHandler accepts upgrades from any origin when allowedOrigins is empty.
func NewHandler(hub *Hub, userService *user.UserService, allowedOrigins []string) *Handler {
	return &Handler{
		hub:         hub,
		userService: userService,
		upgrader: websocket.FastHTTPUpgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(ctx *fasthttp.RequestCtx) bool {
	return func(ctx *fasthttp.RequestCtx) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := string(ctx.Request.Header.Peek("Origin"))
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// HandleFastHTTP upgrades an authenticated request. The token may come from
// the token query parameter since browsers cannot set headers on upgrades.
func (h *Handler) HandleFastHTTP(ctx *fasthttp.RequestCtx) {
	token := string(ctx.QueryArgs().Peek("token"))
	if token == "" {
		authHeader := string(ctx.Request.Header.Peek("Authorization"))
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}

	if token == "" {
		log.Debug().Msg("[WS] Connection rejected: missing token")
		ctx.Error("Unauthorized: missing token", fasthttp.StatusUnauthorized)
		return
	}

	authenticatedUser, err := h.userService.ValidateJWT(token)
	if err != nil {
		log.Debug().Err(err).Msg("[WS] Connection rejected: invalid token")
		ctx.Error("Unauthorized: invalid token", fasthttp.StatusUnauthorized)
		return
	}

	err = h.upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		client := NewClient(h.hub, conn, authenticatedUser)
		client.send <- &OutgoingMessage{
			Type:   MessageTypeConnected,
			UserID: authenticatedUser.ID,
		}
		h.hub.Register(client)

		log.Info().
			Str("userId", authenticatedUser.ID).
			Str("username", authenticatedUser.Username).
			Msg("[WS] Client connected")

		go client.WritePump()
		client.ReadPump()
	})

	if err != nil {
		log.Error().Err(err).Msg("[WS] Failed to upgrade connection")
		return
	}
}
