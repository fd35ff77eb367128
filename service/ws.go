// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package service

import (
	"errors"

	"github.com/mattermost/rtcstats/service/ws"

	"github.com/mattermost/mattermost/server/public/shared/mlog"
)

func (s *Service) broadcast(msg *ClientMessage) {
	data, err := msg.Encode(s.cfg.WS.Encoding)
	if err != nil {
		s.log.Error("failed to encode message", mlog.String("type", msg.Type), mlog.Err(err))
		return
	}

	if err := s.wsServer.Broadcast(s.cfg.WS.MessageType(), data); err != nil {
		if !errors.Is(err, ws.ErrServerClosed) {
			s.log.Error("failed to broadcast message", mlog.String("type", msg.Type), mlog.Err(err))
		}
		return
	}

	s.metrics.IncWSMessages(msg.Type, "out")
}

func (s *Service) send(connID string, msg *ClientMessage) error {
	data, err := msg.Encode(s.cfg.WS.Encoding)
	if err != nil {
		return err
	}

	if err := s.wsServer.Send(ws.Message{
		ConnID: connID,
		Type:   s.cfg.WS.MessageType(),
		Data:   data,
	}); err != nil {
		return err
	}

	s.metrics.IncWSMessages(msg.Type, "out")

	return nil
}

func (s *Service) wsReader() {
	defer s.wg.Done()

	for msg := range s.wsServer.ReceiveCh() {
		switch msg.Type {
		case ws.OpenMessage:
			s.log.Debug("connection opened", mlog.String("connID", msg.ConnID))
			s.metrics.IncWSConnections()
			if err := s.send(msg.ConnID, NewClientMessage(ClientMessageSnapshot, s.snapshot())); err != nil {
				s.log.Error("failed to send snapshot", mlog.String("connID", msg.ConnID), mlog.Err(err))
			}
		case ws.CloseMessage:
			s.log.Debug("connection closed", mlog.String("connID", msg.ConnID))
			s.metrics.DecWSConnections()
		case ws.TextMessage, ws.BinaryMessage:
			s.handleClientMessage(msg)
		default:
			s.log.Warn("unexpected ws message", mlog.String("connID", msg.ConnID), mlog.String("type", msg.Type.String()))
		}
	}
}

func (s *Service) handleClientMessage(msg ws.Message) {
	cm, err := decodeClientMessage(msg)
	if err != nil {
		s.log.Error("failed to decode message", mlog.String("connID", msg.ConnID), mlog.Err(err))
		return
	}

	s.metrics.IncWSMessages(cm.Type, "in")

	switch cm.Type {
	case ClientMessageStart:
		if err := s.StartSession(); err != nil {
			s.log.Error("failed to handle start message", mlog.String("connID", msg.ConnID), mlog.Err(err))
			if err := s.send(msg.ConnID, NewClientMessage(ClientMessageError, map[string]string{"error": err.Error()})); err != nil {
				s.log.Error("failed to send error", mlog.String("connID", msg.ConnID), mlog.Err(err))
			}
		}
	default:
		s.log.Warn("unexpected client message", mlog.String("connID", msg.ConnID), mlog.String("type", cm.Type))
	}
}
