// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package ws

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mattermost/rtcstats/service/random"

	"github.com/gorilla/websocket"
	"github.com/mattermost/mattermost/server/public/shared/mlog"
)

const (
	receiveChSize = 256
)

var (
	ErrServerClosed = errors.New("server is closed")
	ErrConnNotFound = errors.New("connection not found")
	ErrSendFailed   = errors.New("failed to queue message")
)

type UpgradeCb func(connID string, w http.ResponseWriter, r *http.Request) error

type Server struct {
	cfg         Config
	log         mlog.LoggerIFace
	conns       map[string]*conn
	upgradeCb   UpgradeCb
	checkOrigin func(r *http.Request) bool
	receiveCh   chan Message
	closeCh     chan struct{}
	closed      bool
	wg          sync.WaitGroup
	mut         sync.RWMutex
}

func NewServer(cfg Config, log mlog.LoggerIFace, opts ...Option) (*Server, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}
	if log == nil {
		return nil, fmt.Errorf("log should not be nil")
	}

	s := &Server{
		cfg:       cfg,
		log:       log,
		conns:     make(map[string]*conn),
		receiveCh: make(chan Message, receiveChSize),
		closeCh:   make(chan struct{}),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	return s, nil
}

// ReceiveCh returns a channel carrying messages read from connections, plus
// an OpenMessage and a CloseMessage for each of them. It's closed once the
// server is closed.
func (s *Server) ReceiveCh() <-chan Message {
	return s.receiveCh
}

func (s *Server) pushReceive(msg Message) {
	select {
	case s.receiveCh <- msg:
	case <-s.closeCh:
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mut.Lock()
	if s.closed {
		s.mut.Unlock()
		http.Error(w, ErrServerClosed.Error(), http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.mut.Unlock()
	defer s.wg.Done()

	connID := random.NewID()

	if s.upgradeCb != nil {
		if err := s.upgradeCb(connID, w, r); err != nil {
			s.log.Error("upgradeCb failed", mlog.Err(err))
			return
		}
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  s.cfg.ReadBufferSize,
		WriteBufferSize: s.cfg.WriteBufferSize,
		CheckOrigin:     s.checkOrigin,
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("failed to upgrade connection", mlog.Err(err))
		return
	}

	conn := newConn(connID, ws)
	if !s.addConn(conn) {
		s.log.Error("failed to add conn", mlog.String("connID", connID))
		conn.close()
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.connWriter(conn)
	}()

	s.pushReceive(newOpenMessage(connID))

	s.connReader(conn)

	s.removeConn(conn.id)
	if err := conn.close(); err != nil {
		s.log.Debug("failed to close ws conn", mlog.String("connID", connID), mlog.Err(err))
	}
	<-done

	s.pushReceive(newCloseMessage(connID))
}

func (s *Server) connReader(conn *conn) {
	conn.ws.SetReadLimit(connMaxReadBytes)

	readWait := 2 * s.cfg.PingInterval
	if err := conn.ws.SetReadDeadline(time.Now().Add(readWait)); err != nil {
		s.log.Error("failed to set read deadline", mlog.String("connID", conn.id), mlog.Err(err))
		return
	}
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		mt, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.log.Debug("ws read failed", mlog.String("connID", conn.id), mlog.Err(err))
			}
			return
		}

		var msgType MessageType
		switch mt {
		case websocket.TextMessage:
			msgType = TextMessage
		case websocket.BinaryMessage:
			msgType = BinaryMessage
		default:
			continue
		}

		s.pushReceive(Message{
			ConnID: conn.id,
			Type:   msgType,
			Data:   data,
		})
	}
}

func (s *Server) connWriter(conn *conn) {
	pingTicker := time.NewTicker(s.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case msg := <-conn.sendCh:
			var msgType int
			switch msg.Type {
			case TextMessage:
				msgType = websocket.TextMessage
			case BinaryMessage:
				msgType = websocket.BinaryMessage
			default:
				s.log.Error("unexpected message type", mlog.String("connID", conn.id), mlog.String("type", msg.Type.String()))
				continue
			}

			if err := conn.ws.SetWriteDeadline(time.Now().Add(writeWaitTime)); err != nil {
				s.log.Error("failed to set write deadline", mlog.String("connID", conn.id), mlog.Err(err))
			}
			if err := conn.ws.WriteMessage(msgType, msg.Data); err != nil {
				s.log.Error("failed to write message", mlog.String("connID", conn.id), mlog.Err(err))
			}
		case <-pingTicker.C:
			if err := conn.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWaitTime)); err != nil {
				s.log.Debug("failed to write ping message", mlog.String("connID", conn.id), mlog.Err(err))
			}
		case <-conn.closeCh:
			return
		}
	}
}

// Send queues a message for the connection identified by msg.ConnID.
func (s *Server) Send(msg Message) error {
	s.mut.RLock()
	defer s.mut.RUnlock()

	if s.closed {
		return ErrServerClosed
	}

	conn := s.conns[msg.ConnID]
	if conn == nil {
		return fmt.Errorf("%w: %s", ErrConnNotFound, msg.ConnID)
	}

	if !conn.send(msg) {
		return fmt.Errorf("%w: %s", ErrSendFailed, msg.ConnID)
	}

	return nil
}

// Broadcast queues a message for every open connection. Connections that
// can't keep up miss the message.
func (s *Server) Broadcast(mt MessageType, data []byte) error {
	s.mut.RLock()
	defer s.mut.RUnlock()

	if s.closed {
		return ErrServerClosed
	}

	for _, conn := range s.conns {
		if !conn.send(Message{ConnID: conn.id, Type: mt, Data: data}) {
			s.log.Warn("dropping message for slow connection", mlog.String("connID", conn.id))
		}
	}

	return nil
}

// Close closes all the connections and waits for their handlers to return.
// It's safe to call it multiple times.
func (s *Server) Close() {
	s.mut.Lock()
	if s.closed {
		s.mut.Unlock()
		return
	}
	s.closed = true
	close(s.closeCh)
	s.mut.Unlock()

	for _, conn := range s.getConns() {
		if err := conn.close(); err != nil {
			s.log.Error("failed to close ws conn", mlog.String("connID", conn.id), mlog.Err(err))
		}
	}

	s.wg.Wait()
	close(s.receiveCh)
}
