package handlers

import (
	"net/http"

	"quicklearner/logger"
	"quicklearner/middleware"
	"quicklearner/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type NotificationHandler struct {
	hub      *services.Hub
	tokens   *services.TokenService
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewNotificationHandler accepts websocket connections from the given
// origins. Requests without an Origin header are always accepted.
func NewNotificationHandler(hub *services.Hub, tokens *services.TokenService, origins []string, log *logger.Logger) *NotificationHandler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &NotificationHandler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
		log: log.With("handler", "NotificationHandler"),
	}
}

// Connect upgrades to a websocket after checking the access token passed in
// the query string, since browsers cannot set headers on the handshake.
func (h *NotificationHandler) Connect(c *gin.Context) {
	token := middleware.ExtractToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
		return
	}
	claims, err := h.tokens.Verify(token, services.PurposeAccess)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "user_id", claims.UserID(), "error", err)
		return
	}

	h.log.Info("WebSocket connection established", "user_id", claims.UserID())
	h.hub.RegisterClient(conn, claims.UserID())
}
