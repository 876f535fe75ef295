package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"collab-llm/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	sendBufferSize = 64
)

// Session es una conexión realtime viva: identidad verificada más el
// proyecto al que quedó atada en la admisión.
type Session struct {
	id        string
	userID    string
	userEmail string
	projectID string

	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
	trigger *CommandTrigger
	logger  *zap.Logger
	room    *Room

	sendOnce sync.Once
	connOnce sync.Once
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Sender() domain.Sender {
	return domain.UserSender(s.userID, s.userEmail)
}

// readPump consume frames del cliente hasta que la conexión muere, por el
// motivo que sea. Al salir dispara el único leave de la sesión.
func (s *Session) readPump() {
	defer func() {
		s.hub.Leave(s)
		s.closeConn()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("read error", zap.String("session_id", s.id), zap.Error(err))
			}
			return
		}
		s.handleFrame(raw)
	}
}

// handleFrame procesa un frame entrante. Un frame malformado es un error
// local a ese mensaje: se loguea y la conexión sigue viva.
func (s *Session) handleFrame(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.logger.Warn("malformed frame",
			zap.String("session_id", s.id),
			zap.Error(err),
		)
		return
	}

	switch env.Event {
	case EventProjectMessage:
		var msg domain.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			s.logger.Warn("malformed project message",
				zap.String("session_id", s.id),
				zap.Error(err),
			)
			return
		}
		// El remitente siempre es la identidad verificada de la sesión,
		// nunca lo que diga el payload.
		msg.Sender = s.Sender()
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now().UTC()
		}

		room := s.room
		if room == nil {
			return
		}
		room.Broadcast(msg, s)
		if s.trigger != nil {
			s.trigger.Inspect(room, msg)
		}
	default:
		s.logger.Debug("ignoring unknown event",
			zap.String("session_id", s.id),
			zap.String("event", env.Event),
		)
	}
}

// writePump drena el buffer de salida hacia el cliente y mantiene la
// conexión viva con pings periódicos.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.closeConn()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			if !ok {
				s.conn.SetWriteDeadline(time.Now().Add(writeWait))
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) closeSend() {
	s.sendOnce.Do(func() {
		close(s.send)
	})
}

func (s *Session) closeConn() {
	s.connOnce.Do(func() {
		if s.conn != nil {
			s.conn.Close()
		}
	})
}
