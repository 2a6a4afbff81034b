package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"chinchon-service/internal/chinchon"
	"chinchon-service/internal/middleware"
	"chinchon-service/internal/service/game"
	pkgAuth "chinchon-service/pkg/auth"
	appErr "chinchon-service/pkg/errors"
	"chinchon-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	readDeadline = 60 * time.Second
	pingEvery    = 25 * time.Second
	writeWait    = 5 * time.Second
)

type Handler struct {
	gameSvc *game.Service
}

func NewHandler(gameSvc *game.Service) *Handler {
	return &Handler{gameSvc: gameSvc}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

func (h *Handler) HandleGameWS(c *gin.Context) {
	gameID := c.Param("gameId")

	token, err := middleware.TokenFromRequest(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	claims, err := pkgAuth.ParsePlayerToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	playerID := claims.SubjectID

	if err := h.gameSvc.ValidateAccess(c.Request.Context(), playerID, gameID); err != nil {
		switch {
		case errors.Is(err, appErr.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		case errors.Is(err, appErr.ErrGameNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		case errors.Is(err, appErr.ErrGameAccessDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": "game access denied"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate game access"})
		}
		return
	}

	rt, err := h.gameSvc.GetRuntime(c.Request.Context(), gameID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load game"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	logger.Log.Info("New WebSocket connection",
		zap.String("gameID", gameID),
		zap.Int64("playerID", playerID),
	)

	client := newClient(conn, playerID, rt)
	client.run()
}

type incomingMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type client struct {
	conn     *websocket.Conn
	playerID int64
	rt       *game.Runtime
	outbound chan game.OutgoingMessage
	// replies carries errors for this connection only; writePump is the single writer.
	replies chan game.OutgoingMessage
	done    chan struct{}
}

func newClient(conn *websocket.Conn, playerID int64, rt *game.Runtime) *client {
	conn.SetReadLimit(1 << 16)
	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})
	return &client{
		conn:     conn,
		playerID: playerID,
		rt:       rt,
		outbound: rt.Subscribe(playerID),
		replies:  make(chan game.OutgoingMessage, 4),
		done:     make(chan struct{}),
	}
}

func (c *client) run() {
	go c.writePump()
	c.readPump()
}

func (c *client) readPump() {
	defer func() {
		close(c.done)
		c.rt.Unsubscribe(c.playerID, c.outbound)
		c.conn.Close()
	}()

	for {
		mt, message, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Info("WS read error", zap.Error(err), zap.Int64("playerID", c.playerID), zap.String("gameID", c.rt.GameID()))
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var incoming incomingMessage
		if err := json.Unmarshal(message, &incoming); err != nil {
			c.reply(errorMessage(appErr.ErrInvalidPayload))
			continue
		}
		if incoming.Type == "" {
			continue
		}

		if err := c.rt.HandleAction(c.playerID, incoming.Type, incoming.Data); err != nil {
			c.reply(errorMessage(err))
		}
	}
}

func errorMessage(err error) game.OutgoingMessage {
	data := gin.H{"message": err.Error()}
	if kind := chinchon.KindOf(err); kind != "" {
		data["reason"] = kind
	}
	return game.OutgoingMessage{Type: "error", Data: data}
}

func (c *client) reply(msg game.OutgoingMessage) {
	select {
	case c.replies <- msg:
	default:
		logger.Log.Warn("ws reply dropped", zap.Int64("playerID", c.playerID), zap.String("gameID", c.rt.GameID()))
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.outbound:
			if !ok {
				return
			}
			if !c.write(msg) {
				return
			}
		case msg := <-c.replies:
			if !c.write(msg) {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client) write(msg game.OutgoingMessage) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		logger.Log.Info("WS write error", zap.Error(err), zap.Int64("playerID", c.playerID), zap.String("gameID", c.rt.GameID()))
		return false
	}
	return true
}
