package ws

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"collab-llm/internal/domain"
)

// Room agrupa las sesiones conectadas de un proyecto junto con el estado
// compartido de archivos. La aceptación de mensajes se serializa con el
// mutex del room: el orden de aceptación es el orden de entrega para cada
// miembro.
type Room struct {
	projectID string
	logger    *zap.Logger

	mu       sync.Mutex
	members  map[*Session]bool
	fileTree domain.FileTree
}

func newRoom(projectID string, logger *zap.Logger) *Room {
	return &Room{
		projectID: projectID,
		logger:    logger,
		members:   make(map[*Session]bool),
		fileTree:  make(domain.FileTree),
	}
}

func (r *Room) ProjectID() string {
	return r.projectID
}

// Broadcast acepta un mensaje y lo reparte a los miembros actuales.
// Un payload de archivos se aplica al estado del room antes del fan-out,
// de modo que un snapshot posterior siempre refleja los mensajes ya
// aceptados. Con exclude != nil el remitente no recibe su propio mensaje.
func (r *Room) Broadcast(msg domain.Message, exclude *Session) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !msg.FileTree.IsEmpty() {
		msg.FileTree.ApplyTo(r.fileTree)
	}

	frame, err := marshalEnvelope(EventProjectMessage, msg)
	if err != nil {
		// Falla local al mensaje: el room y las demás sesiones siguen vivas.
		if r.logger != nil {
			r.logger.Warn("drop unserializable message",
				zap.String("project_id", r.projectID),
				zap.Error(err),
			)
		}
		return
	}

	for member := range r.members {
		if member == exclude {
			continue
		}
		r.deliverLocked(member, frame)
	}
}

// Snapshot devuelve una copia del estado de archivos actual.
func (r *Room) Snapshot() domain.FileTree {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make(domain.FileTree, len(r.fileTree))
	for path, contents := range r.fileTree {
		copied[path] = contents
	}
	return copied
}

// MemberCount devuelve la cantidad de sesiones conectadas.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *Room) join(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[s] {
		return
	}
	r.members[s] = true

	// Un miembro nuevo recibe el estado de archivos acumulado del room.
	if len(r.fileTree) > 0 {
		payload := domain.FileTreePayloadFromMap(r.fileTree)
		if frame, err := marshalEnvelope(EventFileTreeSync, payload); err == nil {
			r.deliverLocked(s, frame)
		}
	}
}

// leave saca la sesión del room y devuelve cuántos miembros quedan.
// Es idempotente: una sesión ya removida no cambia nada.
func (r *Room) leave(s *Session) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[s] {
		delete(r.members, s)
		s.closeSend()
	}
	return len(r.members)
}

// deliverLocked encola el frame para un miembro. Un buffer lleno indica un
// cliente que no drena: se lo desconecta a él solo, nunca al room.
func (r *Room) deliverLocked(member *Session, frame []byte) {
	select {
	case member.send <- frame:
	default:
		delete(r.members, member)
		member.closeSend()
		member.closeConn()
		if r.logger != nil {
			r.logger.Warn("disconnect slow client",
				zap.String("project_id", r.projectID),
				zap.String("session_id", member.ID()),
			)
		}
	}
}
