package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"im-messenger/internal/config"
	"im-messenger/internal/imtypes"
	"im-messenger/internal/logging"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// CommandHandler applies a command received from a UI subscriber.
type CommandHandler interface {
	HandleCommand(ctx context.Context, cmd imtypes.Command) error
}

// CommandHandlerFunc adapts a function to CommandHandler.
type CommandHandlerFunc func(ctx context.Context, cmd imtypes.Command) error

// HandleCommand calls f(ctx, cmd).
func (f CommandHandlerFunc) HandleCommand(ctx context.Context, cmd imtypes.Command) error {
	return f(ctx, cmd)
}

// pumpConfig holds the effective pump timings, falling back to the package
// defaults for unset values.
type pumpConfig struct {
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	maxMessageSize int64
}

func newPumpConfig(cfg config.WebSocketConfig) pumpConfig {
	pc := pumpConfig{writeWait: writeWait, pongWait: pongWait, pingPeriod: pingPeriod, maxMessageSize: maxMessageSize}
	if cfg.WriteWaitSeconds > 0 {
		pc.writeWait = time.Duration(cfg.WriteWaitSeconds) * time.Second
	}
	if cfg.PongWaitSeconds > 0 {
		pc.pongWait = time.Duration(cfg.PongWaitSeconds) * time.Second
	}
	if cfg.PingPeriodSeconds > 0 {
		pc.pingPeriod = time.Duration(cfg.PingPeriodSeconds) * time.Second
	}
	if pc.pingPeriod >= pc.pongWait {
		pc.pingPeriod = (pc.pongWait * 9) / 10
	}
	if cfg.MaxMessageSizeBytes > 0 {
		pc.maxMessageSize = int64(cfg.MaxMessageSizeBytes)
	}
	return pc
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	// ID identifies the connection in logs.
	ID string

	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	handler CommandHandler
	cfg     pumpConfig
	log     *zap.Logger
}

// readPump decodes commands from the websocket connection and hands them to
// the command handler. Malformed frames and failed commands are logged and
// skipped.
func (c *Client) readPump() {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.hub.release(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(c.cfg.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.pongWait))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket closed unexpectedly", zap.String("clientId", c.ID), zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.log.Warn("ignore non-text frame", zap.String("clientId", c.ID), zap.Int("type", messageType))
			continue
		}

		var cmd imtypes.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.log.Warn("ignore malformed command", zap.String("clientId", c.ID), zap.Error(err))
			continue
		}
		if c.handler == nil {
			continue
		}
		if err := c.handler.HandleCommand(ctx, cmd); err != nil {
			c.log.Warn("command failed",
				zap.String("clientId", c.ID),
				zap.String("type", string(cmd.Type)),
				zap.String("targetId", cmd.TargetID),
				zap.Error(err))
		}
	}
}

// writePump pumps changes from the hub to the websocket connection, one
// change per text frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs upgrades the request to a websocket connection and attaches it to
// the hub. Authentication happens before this is called.
func ServeWs(hub *Hub, handler CommandHandler, w http.ResponseWriter, r *http.Request, wsCfg config.WebSocketConfig, log *zap.Logger) {
	log = logging.OrNop(log)
	pc := newPumpConfig(wsCfg)
	upgrader := websocket.Upgrader{
		ReadBufferSize:  int(pc.maxMessageSize),
		WriteBufferSize: int(pc.maxMessageSize),
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{
		ID:      uuid.NewString(),
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, 256),
		handler: handler,
		cfg:     pc,
		log:     log,
	}
	if !hub.accept(client) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	log.Info("websocket client connected", zap.String("clientId", client.ID))
}
