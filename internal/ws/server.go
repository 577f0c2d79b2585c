package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wuwenbin0122/vishai/internal/chat"
	"github.com/wuwenbin0122/vishai/internal/models"
)

type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*jwt.RegisteredClaims, error)
}

type MessageSender interface {
	Send(ctx context.Context, userID, text string) (*chat.Turn, error)
}

// Server upgrades authenticated requests and dispatches socket events.
type Server struct {
	hub      *Hub
	verifier TokenVerifier
	chat     MessageSender
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger
}

func NewServer(hub *Hub, verifier TokenVerifier, sender MessageSender, allowedOrigins []string, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Server{
		hub:      hub,
		verifier: verifier,
		chat:     sender,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

// Handle verifies the handshake token (query "token" or Authorization
// header) before upgrading; unauthenticated handshakes get a 401.
func (s *Server) Handle(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		token = c.GetHeader("Authorization")
	}
	if strings.TrimSpace(token) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token, authorization denied"})
		return
	}

	claims, err := s.verifier.VerifyToken(c.Request.Context(), token)
	if err != nil {
		s.logger.Debugw("socket handshake rejected", "error", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid token"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warnw("socket upgrade failed", "error", err)
		return
	}

	client := newClient(uuid.NewString(), claims.Subject, conn)
	if !s.hub.Register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
		return
	}
	s.logger.Infow("user connected", "user_id", client.userID, "conn_id", client.id)

	go client.writePump()
	s.readPump(client)
}

func (s *Server) readPump(c *Client) {
	defer func() {
		s.hub.Unregister(c)
		_ = c.conn.Close()
		s.logger.Infow("user disconnected", "user_id", c.userID, "conn_id", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.logger.Warnw("socket closed unexpectedly", "conn_id", c.id, "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.logger.Warnw("invalid socket frame", "conn_id", c.id, "error", err)
			continue
		}

		switch env.Event {
		case EventSendMessage:
			var payload SendMessagePayload
			if err := json.Unmarshal(env.Data, &payload); err != nil {
				s.logger.Warnw("invalid sendMessage payload", "conn_id", c.id, "error", err)
				continue
			}
			go s.handleSendMessage(c, payload)
		default:
			s.logger.Debugw("ignoring socket event", "conn_id", c.id, "event", env.Event)
		}
	}
}

// handleSendMessage runs detached from the connection so a turn that is
// already in flight still persists if the sender disconnects. Failures are
// only logged; the client gets no error event.
func (s *Server) handleSendMessage(c *Client, payload SendMessagePayload) {
	ctx := context.Background()

	if payload.Token != "" {
		claims, err := s.verifier.VerifyToken(ctx, payload.Token)
		if err != nil {
			s.logger.Warnw("sendMessage dropped: invalid token", "conn_id", c.id, "error", err)
			return
		}
		if claims.Subject != c.userID {
			s.logger.Warnw("sendMessage dropped: token user mismatch", "conn_id", c.id, "user_id", c.userID)
			return
		}
	}

	turn, err := s.chat.Send(ctx, c.userID, payload.Text)
	if errors.Is(err, chat.ErrEmptyText) {
		s.logger.Debugw("sendMessage dropped: empty text", "conn_id", c.id)
		return
	}
	if err != nil {
		s.logger.Errorw("error saving message", "user_id", c.userID, "error", err)
		return
	}

	s.hub.SendToUser(c.userID, EventReceiveMessage, ReceiveMessagePayload{Sender: models.SenderUser, Text: turn.User.Text})
	s.hub.SendToUser(c.userID, EventReceiveMessage, ReceiveMessagePayload{Sender: models.SenderAI, Text: turn.AI.Text})
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	wildcard := false
	for _, origin := range allowed {
		if origin == "*" {
			wildcard = true
		}
		set[strings.TrimRight(origin, "/")] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}
