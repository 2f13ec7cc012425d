// Package server manages individual WebSocket clients, handling read/write
// pumps, inbound event dispatch, and lifecycle control for each connection.
package server

import (
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/gochat-rooms/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client represents a WebSocket client connection in the chat system.
// It owns the connection ID the registry refers to, the outbound queue, and
// the chat handler its inbound events are dispatched to.
type Client struct {
	id             string
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	chat           ChatHandler
	addr           string
	closed         bool
	maxMessageSize int64
	log            *zap.Logger
}

// NewClient creates a new Client instance with a fresh connection ID. The
// client's send channel is buffered to cfg.SendBufferSize messages.
func NewClient(conn *websocket.Conn, hub *Hub, chat ChatHandler, addr string, cfg Config, log *zap.Logger) *Client {
	cfg = sanitizeConfig(cfg)
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	id := uuid.NewString()
	return &Client{
		id:             id,
		conn:           conn,
		send:           make(chan []byte, cfg.SendBufferSize),
		hub:            hub,
		chat:           chat,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		log:            log.With(zap.String("conn_id", id), zap.String("addr", addr)),
	}
}

// ID returns the connection ID used as the registry key.
func (c *Client) ID() string {
	return c.id
}

// GetSendChan returns the client's send channel for reading outgoing messages.
// This channel is read-only from the caller's perspective.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("error setting initial read deadline", zap.Error(err))
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.Warn("error setting read deadline in pong handler", zap.Error(err))
		}
		return nil
	})
}

// handleReadError logs appropriate error messages based on the error type.
// Every read error ends the read loop.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("message exceeded maximum size", zap.Int64("max_bytes", c.maxMessageSize))
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Info("client disconnected", zap.Error(err))
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Info("client connection closed", zap.Error(err))
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.log.Warn("unexpected WebSocket close", zap.Error(err))
	default:
		c.log.Warn("WebSocket read error", zap.Error(err))
	}
}

// processMessage decodes one inbound frame and applies it through the chat
// handler. Join failures and every message get an ack addressed to this
// client only.
func (c *Client) processMessage(rawMessage []byte) {
	req, err := protocol.Decode(rawMessage)
	if err != nil {
		c.log.Debug("invalid inbound event", zap.String("event", req.Event), zap.Error(err))
		if req.Event == protocol.EventJoin || req.Event == protocol.EventMessage {
			c.ack(req.ID, err)
		}
		return
	}

	switch req.Event {
	case protocol.EventJoin:
		if _, err := c.chat.Join(c.id, req.Join.Username, req.Join.Room); err != nil {
			c.ack(req.ID, err)
		}
	case protocol.EventMessage:
		c.ack(req.ID, c.chat.Message(c.id, req.Message.Text))
	case protocol.EventLeave:
		c.chat.Leave(c.id)
	}
}

func (c *Client) ack(id uint64, cause error) {
	payload, err := protocol.EncodeAck(id, cause)
	if err != nil {
		c.log.Error("failed to encode ack", zap.Error(err))
		return
	}
	c.hub.deliver([]string{c.id}, payload)
}

func (c *Client) readPump() {
	defer func() {
		c.chat.Disconnect(c.id)
		c.hub.Unregister(c)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("error closing connection in readPump", zap.Error(err))
		}
	}()

	c.setupReadConnection()

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		c.processMessage(rawMessage)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Warn("error closing connection in writePump", zap.Error(err))
	}
}

// handleMessage processes outgoing messages and returns false if the connection should be closed
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("error setting write deadline", zap.Error(err))
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	return c.writeTextMessage(message)
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
		c.log.Debug("error writing close message", zap.Error(err))
	}
	return false
}

// writeTextMessage writes a text message and any queued messages into one
// frame, newline separated.
func (c *Client) writeTextMessage(message []byte) bool {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		c.log.Warn("error creating writer", zap.Error(err))
		return false
	}

	if !c.writeMessageContent(w, message) {
		return false
	}

	if !c.writeQueuedMessages(w) {
		return false
	}

	return c.closeWriter(w)
}

// writeMessageContent writes the main message content
func (c *Client) writeMessageContent(w io.WriteCloser, message []byte) bool {
	if _, err := w.Write(message); err != nil {
		c.log.Warn("error writing message", zap.Error(err))
		return false
	}
	return true
}

// writeQueuedMessages writes any additional queued messages
func (c *Client) writeQueuedMessages(w io.WriteCloser) bool {
	n := len(c.send)
	for i := 0; i < n; i++ {
		if !c.writeQueuedMessage(w) {
			return false
		}
	}
	return true
}

// writeQueuedMessage writes a single queued message with newline separator
func (c *Client) writeQueuedMessage(w io.WriteCloser) bool {
	message, ok := <-c.send
	if !ok {
		return false
	}
	if _, err := w.Write([]byte{'\n'}); err != nil {
		c.log.Warn("error writing newline", zap.Error(err))
		return false
	}
	if _, err := w.Write(message); err != nil {
		c.log.Warn("error writing queued message", zap.Error(err))
		return false
	}
	return true
}

// closeWriter closes the message writer
func (c *Client) closeWriter(w io.WriteCloser) bool {
	if err := w.Close(); err != nil {
		c.log.Warn("error closing writer", zap.Error(err))
		return false
	}
	return true
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Warn("error setting write deadline for ping", zap.Error(err))
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Warn("error writing ping message", zap.Error(err))
		return false
	}
	return true
}
