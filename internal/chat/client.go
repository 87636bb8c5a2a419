package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vantage-crm/backend/internal/auth"
	"github.com/vantage-crm/backend/internal/tenant"
)

// PermissionChecker decides whether the caller's role grants chat access.
type PermissionChecker interface {
	HasPermission(ctx context.Context, roleID uuid.UUID, module, action string) (bool, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client represents a single WebSocket connection in an organization room.
type Client struct {
	ID       string
	OrgID    uuid.UUID
	UserID   uuid.UUID
	JoinedAt time.Time
	hub      *Hub
	conn     *websocket.Conn
	send     chan WSMessage
	logger   *zap.Logger
}

// ServeWs handles the WebSocket upgrade. Browsers cannot set headers on the
// upgrade request, so the access token arrives as ?token= and goes through
// the same validation path as the Authorization header, including the
// revocation list and tenant resolution. The room is always the token's
// organization; a client cannot pick one.
func ServeWs(hub *Hub, validator *auth.Validator, resolver *tenant.Resolver, perms PermissionChecker, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
			return
		}
		claims, err := validator.Validate(c.Request.Context(), token, auth.TokenTypeAccess)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if claims.OrgID == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "token has no tenant scope"})
			return
		}
		orgID, err := claims.OrganizationID()
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if _, err := resolver.Resolve(c.Request.Context(), orgID); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "organization unavailable"})
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		roleID, err := uuid.Parse(claims.RoleID)
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "no role assigned"})
			return
		}
		allowed, err := perms.HasPermission(c.Request.Context(), roleID, "chat", "read")
		if err != nil || !allowed {
			c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:       uuid.New().String(),
			OrgID:    orgID,
			UserID:   userID,
			JoinedAt: time.Now(),
			hub:      hub,
			conn:     conn,
			send:     make(chan WSMessage, 256),
			logger:   logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		c.handleEvent(msg)
	}
}

func (c *Client) handleEvent(msg WSMessage) {
	switch msg.Event {
	case "join":
		c.hub.BroadcastAndPublish(c.OrgID, "presence", map[string]interface{}{
			"user_id": c.UserID.String(),
			"online":  c.hub.RoomCount(c.OrgID),
		})
	case "chat_message", "typing":
		// Publish only so the Redis subscriber broadcasts once for all
		// instances (avoids duplicate delivery to local clients).
		c.hub.PublishOnly(c.OrgID, msg.Event, json.RawMessage(msg.Data))
	default:
		// ignore
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
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
