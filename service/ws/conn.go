// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	connMaxReadBytes = 1024 * 1024 // 1MB
	connSendChSize   = 256
	writeWaitTime    = 10 * time.Second
)

type conn struct {
	id        string
	ws        *websocket.Conn
	sendCh    chan Message
	closeCh   chan struct{}
	closeOnce sync.Once
}

func newConn(id string, ws *websocket.Conn) *conn {
	return &conn{
		id:      id,
		ws:      ws,
		sendCh:  make(chan Message, connSendChSize),
		closeCh: make(chan struct{}),
	}
}

// send queues a message without blocking. It returns false if the connection
// is closed or its queue is full.
func (c *conn) send(msg Message) bool {
	select {
	case <-c.closeCh:
		return false
	default:
	}

	select {
	case c.sendCh <- msg:
		return true
	default:
		return false
	}
}

func (c *conn) close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		if c.ws != nil {
			err = c.ws.Close()
		}
	})
	return err
}

func (s *Server) addConn(c *conn) bool {
	if c == nil {
		return false
	}
	s.mut.Lock()
	defer s.mut.Unlock()
	if _, ok := s.conns[c.id]; ok {
		return false
	}
	s.conns[c.id] = c
	return true
}

func (s *Server) removeConn(connID string) bool {
	s.mut.Lock()
	defer s.mut.Unlock()
	if _, ok := s.conns[connID]; !ok {
		return false
	}
	delete(s.conns, connID)
	return true
}

func (s *Server) getConn(connID string) *conn {
	s.mut.RLock()
	defer s.mut.RUnlock()

	if connID != "" {
		c := s.conns[connID]
		return c
	}

	return nil
}

func (s *Server) getConns() []*conn {
	s.mut.RLock()
	defer s.mut.RUnlock()
	var i int
	conns := make([]*conn, len(s.conns))
	for _, conn := range s.conns {
		conns[i] = conn
		i++
	}
	return conns
}
