package graphql

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// graphql-transport-ws protocol constants.
const (
	wsSubprotocol = "graphql-transport-ws"

	msgConnectionInit = "connection_init"
	msgConnectionAck  = "connection_ack"
	msgSubscribe      = "subscribe"
	msgNext           = "next"
	msgError          = "error"
	msgComplete       = "complete"
	msgPing           = "ping"
	msgPong           = "pong"

	// connInitTimeout bounds the wait for the client's connection_init.
	connInitTimeout = 10 * time.Second
)

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// wsSession is one websocket connection carrying any number of
// subscription streams.
type wsSession struct {
	handler *Handler
	conn    *websocket.Conn
	ctx     context.Context
	cancel  context.CancelFunc

	// writeMu serializes writes; subscription goroutines and the read
	// loop share the connection.
	writeMu sync.Mutex

	// mu guards subs
	mu   sync.Mutex
	subs map[string]context.CancelFunc
}

// serveWebSocket upgrades the connection and runs the
// graphql-transport-ws session loop.
func (h *Handler) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	session := &wsSession{
		handler: h,
		conn:    conn,
		ctx:     ctx,
		cancel:  cancel,
		subs:    make(map[string]context.CancelFunc),
	}
	defer session.close()

	// The first message must be connection_init. Its payload may carry
	// an Authorization value; the upgrade request's header is the
	// fallback.
	authorization, ok := session.awaitInit(r.Header.Get("Authorization"))
	if !ok {
		return
	}
	if h.contextFn != nil {
		session.ctx = h.contextFn(session.ctx, authorization)
	}
	if !session.send(wsMessage{Type: msgConnectionAck}) {
		return
	}

	session.readLoop()
}

// awaitInit reads the connection_init message and resolves the effective
// Authorization value.
func (s *wsSession) awaitInit(headerAuth string) (string, bool) {
	_ = s.conn.SetReadDeadline(time.Now().Add(connInitTimeout))
	defer func() { _ = s.conn.SetReadDeadline(time.Time{}) }()

	var msg wsMessage
	if err := s.conn.ReadJSON(&msg); err != nil {
		s.handler.logger.Debug("websocket closed before init", "error", err)
		return "", false
	}
	if msg.Type != msgConnectionInit {
		s.closeWithReason(websocket.ClosePolicyViolation, "connection_init expected")
		return "", false
	}

	authorization := headerAuth
	if len(msg.Payload) > 0 {
		var payload struct {
			Authorization string `json:"Authorization"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err == nil && payload.Authorization != "" {
			authorization = payload.Authorization
		}
	}
	return authorization, true
}

func (s *wsSession) readLoop() {
	for {
		var msg wsMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			s.handler.logger.Debug("websocket read ended", "error", err)
			return
		}

		switch msg.Type {
		case msgSubscribe:
			s.handleSubscribe(msg)
		case msgComplete:
			s.stopSubscription(msg.ID)
		case msgPing:
			s.send(wsMessage{Type: msgPong})
		case msgPong:
			// keepalive reply, nothing to do
		default:
			s.closeWithReason(websocket.ClosePolicyViolation, "unexpected message type "+msg.Type)
			return
		}
	}
}

func (s *wsSession) handleSubscribe(msg wsMessage) {
	if msg.ID == "" {
		s.closeWithReason(websocket.ClosePolicyViolation, "subscribe requires an id")
		return
	}

	var params Params
	if err := json.Unmarshal(msg.Payload, &params); err != nil {
		s.sendError(msg.ID, "invalid subscribe payload")
		return
	}

	s.mu.Lock()
	if _, exists := s.subs[msg.ID]; exists {
		s.mu.Unlock()
		s.closeWithReason(websocket.ClosePolicyViolation, "subscriber id already exists")
		return
	}
	subCtx, subCancel := context.WithCancel(s.ctx)
	s.subs[msg.ID] = subCancel
	s.mu.Unlock()

	stream, err := s.handler.exec.Subscribe(subCtx, params)
	if err != nil {
		s.removeSubscription(msg.ID)
		s.sendError(msg.ID, err.Error())
		return
	}

	if s.handler.metrics != nil {
		s.handler.metrics.SubscriptionsActive.Inc()
	}
	s.handler.logger.Debug("subscription started", "id", msg.ID)

	go func() {
		defer func() {
			s.removeSubscription(msg.ID)
			if s.handler.metrics != nil {
				s.handler.metrics.SubscriptionsActive.Dec()
			}
		}()

		for resp := range stream {
			payload, err := json.Marshal(resp)
			if err != nil {
				s.sendError(msg.ID, "failed to encode event")
				return
			}
			if !s.send(wsMessage{ID: msg.ID, Type: msgNext, Payload: payload}) {
				return
			}
		}

		// Source closed: tell the client the stream is complete unless
		// it was the client that cancelled.
		if subCtx.Err() == nil {
			s.send(wsMessage{ID: msg.ID, Type: msgComplete})
		}
	}()
}

func (s *wsSession) stopSubscription(id string) {
	s.mu.Lock()
	cancel, ok := s.subs[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

func (s *wsSession) removeSubscription(id string) {
	s.mu.Lock()
	if cancel, ok := s.subs[id]; ok {
		cancel()
		delete(s.subs, id)
	}
	s.mu.Unlock()
}

func (s *wsSession) send(msg wsMessage) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(msg); err != nil {
		s.handler.logger.Debug("websocket write failed", "error", err)
		return false
	}
	return true
}

func (s *wsSession) sendError(id, message string) {
	payload, _ := json.Marshal([]map[string]any{{"message": message}})
	s.send(wsMessage{ID: id, Type: msgError, Payload: payload})
}

func (s *wsSession) closeWithReason(code int, reason string) {
	s.writeMu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
	s.writeMu.Unlock()
}

// close cancels every live subscription and closes the connection.
func (s *wsSession) close() {
	s.mu.Lock()
	for id, cancel := range s.subs {
		cancel()
		delete(s.subs, id)
	}
	s.mu.Unlock()

	s.cancel()
	_ = s.conn.Close()
}
