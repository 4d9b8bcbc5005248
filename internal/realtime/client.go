package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/acm-chapter/events-backend/internal/auth"
	"github.com/acm-chapter/events-backend/internal/models"
	"github.com/acm-chapter/events-backend/internal/registrations"
)

const (
	writeWait    = 10 * time.Second
	readLimit    = 4096
	sendBuffered = 64
)

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TokenValidator validates staff tokens for the feed.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// Client is one check-in dashboard connection.
type Client struct {
	ID        string
	Partition string
	UserID    uuid.UUID
	Role      models.Role
	hub       *Hub
	conn      *websocket.Conn
	send      chan WSMessage
	logger    *zap.Logger
}

func newClient(hub *Hub, partition string) *Client {
	return &Client{
		ID:        uuid.NewString(),
		Partition: partition,
		hub:       hub,
		send:      make(chan WSMessage, sendBuffered),
		logger:    hub.logger,
	}
}

// NewUpgrader returns an upgrader accepting the given comma-separated origins ("*" for any).
func NewUpgrader(allowedOrigins string) *websocket.Upgrader {
	allowed := make(map[string]bool)
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
		},
	}
}

// ServeWs handles GET /ws/attendance?event=&token= and streams check-ins for that event.
func ServeWs(hub *Hub, upgrader *websocket.Upgrader, validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		title := strings.TrimSpace(c.Query("event"))
		token := c.Query("token")
		if title == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "event and token required"})
			return
		}
		claims, err := validator.Validate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := newClient(hub, registrations.PartitionKey(title))
		client.UserID = claims.UserID
		client.Role = claims.Role
		client.conn = conn
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

// readPump only handles heartbeats; dashboards are receive-only.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("dashboard read error", zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		if msg.Event == "ping" {
			select {
			case c.send <- WSMessage{Event: "pong"}:
			default:
			}
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
