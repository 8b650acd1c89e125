package handlers

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"blood-platform/internal/apperr"
	"blood-platform/internal/middleware"
	"blood-platform/internal/response"
	ws "blood-platform/internal/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type WebSocketHandler struct {
	Hub       *ws.Hub
	JwtSecret string

	upgrader websocket.Upgrader
	log      *log.Entry
}

// NewWebSocketHandler accepts upgrades from the given origins; "*" allows
// any origin.
func NewWebSocketHandler(hub *ws.Hub, jwtSecret string, origins []string) *WebSocketHandler {
	allowAll := len(origins) == 0 || slices.Contains(origins, "*")
	return &WebSocketHandler{
		Hub:       hub,
		JwtSecret: jwtSecret,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return allowAll || slices.Contains(origins, r.Header.Get("Origin"))
			},
		},
		log: log.WithField("component", "websocket"),
	}
}

// ServeWs authenticates with the token query parameter, since browsers
// cannot set headers on a WebSocket handshake.
func (h *WebSocketHandler) ServeWs(c *gin.Context) {
	claims, err := middleware.ParseToken(h.JwtSecret, c.Query("token"))
	if err != nil {
		response.Error(c, apperr.Authentication("invalid or expired token"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("failed to upgrade connection")
		return
	}

	client := ws.NewClient(h.Hub, conn, claims.UserID)
	select {
	case client.Hub.Register <- client:
	case <-client.Hub.Done():
		conn.Close()
		return
	}

	go h.writePump(client)
	go h.readPump(client)
}

func (h *WebSocketHandler) writePump(client *ws.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) readPump(client *ws.Client) {
	defer func() {
		select {
		case client.Hub.Unregister <- client:
		case <-client.Hub.Done():
		}
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(512)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithError(err).WithField("user_id", client.UserID).Debug("read error")
			}
			break
		}
	}
}
