package ws

import (
	"sync"

	"go.uber.org/zap"
)

// Hub es el registro de rooms por proyecto. Los rooms se crean en el primer
// join y se descartan, junto con su estado de archivos, cuando el último
// miembro se va. No hay estado durable entre reinicios.
//
// El mutex del hub ordena joins y leaves entre rooms; el mutex de cada room
// ordena la aceptación de mensajes. El orden de adquisición es siempre
// hub.mu -> room.mu.
type Hub struct {
	logger *zap.Logger

	mu    sync.Mutex
	rooms map[string]*Room
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		rooms:  make(map[string]*Room),
	}
}

// Join incorpora la sesión al room de su proyecto, creándolo si no existe.
// Una sesión pertenece a lo sumo a un room; un segundo join de la misma
// sesión es un no-op.
func (h *Hub) Join(s *Session) *Room {
	h.mu.Lock()
	room, ok := h.rooms[s.projectID]
	if !ok {
		room = newRoom(s.projectID, h.logger)
		h.rooms[s.projectID] = room
	}
	room.join(s)
	s.room = room
	h.mu.Unlock()

	if h.logger != nil {
		h.logger.Info("session joined",
			zap.String("project_id", s.projectID),
			zap.String("session_id", s.ID()),
			zap.String("user_id", s.userID),
		)
	}
	return room
}

// Leave saca la sesión de su room; se invoca exactamente una vez por
// desconexión, sin importar cómo se cortó la conexión. El room vacío se
// elimina del registro.
func (h *Hub) Leave(s *Session) {
	room := s.room
	if room == nil {
		return
	}

	h.mu.Lock()
	remaining := room.leave(s)
	if remaining == 0 && h.rooms[room.projectID] == room {
		delete(h.rooms, room.projectID)
	}
	h.mu.Unlock()

	if h.logger != nil {
		h.logger.Info("session left",
			zap.String("project_id", s.projectID),
			zap.String("session_id", s.ID()),
			zap.Int("remaining", remaining),
		)
	}
}

// Room devuelve el room activo de un proyecto, si existe.
func (h *Hub) Room(projectID string) (*Room, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[projectID]
	return room, ok
}
