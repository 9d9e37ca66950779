package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/message"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	defaultSendBuffer = 256
)

// Relay is the part of the core a connection talks to.
type Relay interface {
	chat.SessionListener

	SubmitJoin(userID, displayName, sessionID string) (message.Message, *errs.CustomError)
	SubmitLeave(userID string) (message.Message, *errs.CustomError)
	SubmitChat(content, sender, receiver string) (message.Message, *errs.CustomError)
}

// Client is one live WebSocket connection, identified by its session handle.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	relay Relay

	// sessionID is the transport handle of this connection.
	sessionID string

	// send queues encoded frames for the write pump.
	send chan []byte

	// mu guards closed; enqueue holds it for reading so send is never written after close.
	mu     sync.RWMutex
	closed bool

	logger zerolog.Logger
}

// NewClient constructs a Client for an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, sessionID string, relay Relay) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		relay:     relay,
		sessionID: sessionID,
		send:      make(chan []byte, hub.sendBuffer),
		logger: logx.Logger().With().
			Str("component", "Client").
			Str("session_id", sessionID).
			Logger(),
	}
}

// Serve registers the connection, reports it to the relay (which answers with
// the online snapshot) and runs the pumps. It blocks until the connection ends.
// A hub that has shut down gets the connection closed right away.
func (c *Client) Serve() {
	if !c.hub.Register(c) {
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error")
		}
		return
	}
	c.relay.OnConnected(c.sessionID)

	go c.WritePump()

	c.ReadPump()
}

// ReadPump reads frames until the connection fails or closes, then cleans up.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Connection closed unexpectedly")
			}
			break
		}

		c.processInboundFrame(frameBytes)
	}
}

// cleanupOnDisconnect runs once the read pump ends, for clean closes and
// network loss alike.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Debug().Msg("Client connection cleanup starting.")

	c.hub.Unregister(c)
	c.relay.OnDisconnected(c.sessionID)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

func (c *Client) processInboundFrame(frameBytes []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(frameBytes, &frame); err != nil {
		c.logger.Warn().Err(err).Int("frame_bytes", len(frameBytes)).Msg("Client sent invalid JSON")
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	if !frame.Type.Valid() {
		c.logger.Warn().Str("frame_type", string(frame.Type)).Msg("Client sent unsupported frame type")
		c.SendError(errs.NewError(errs.ErrUnsupportedFrameType, frame.Type))
		return
	}

	switch frame.Type {
	case message.TypeJoin:
		notice, err := c.relay.SubmitJoin(frame.Sender, frame.DisplayName, c.sessionID)
		if err != nil {
			c.SendError(err)
			return
		}
		c.queue(FrameAck, notice)

	case message.TypeLeave:
		notice, err := c.relay.SubmitLeave(frame.Sender)
		if err != nil {
			c.SendError(err)
			return
		}
		c.queue(FrameAck, notice)

	case message.TypeChat:
		// the echo of a routed message arrives through DeliverToUser
		if _, err := c.relay.SubmitChat(frame.Content, frame.Sender, frame.Receiver); err != nil {
			c.SendError(err)
		}
	}
}

// WritePump drains the send queue to the socket and keeps the connection
// alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one queued frame, or a close frame once the queue
// is closed. It reports whether the write pump should continue.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// queue encodes payload as a frame of frameType and enqueues it.
func (c *Client) queue(frameType FrameType, payload any) bool {
	frame, err := encode(frameType, payload)
	if err != nil {
		c.logger.Error().Err(err).Str("frame_type", string(frameType)).Msg("Error marshaling frame for client")
		return false
	}
	return c.enqueue(frame)
}

// enqueue hands frame to the write pump without blocking. Frames for a full
// or closed queue are dropped.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send queue full, dropping frame")
		return false
	}
}

// closeSend closes the send queue once.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// SendError queues a FrameError built from err.
func (c *Client) SendError(err *errs.CustomError) {
	if err == nil {
		err = errs.NewError(errs.ErrUnknown)
	}

	c.queue(FrameError, ErrorPayload{Code: err.Code, Message: err.Message})
}
