package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// AISenderName es el nombre reservado con el que se publican mensajes
// generados por el agente.
const AISenderName = "AI"

type SenderKind string

const (
	SenderKindUser SenderKind = "user"
	SenderKindAI   SenderKind = "ai"
)

// Sender identifica el origen de un mensaje: un usuario autenticado o el
// agente del sistema. En el wire un usuario viaja como objeto {id, email}
// y el agente como el string literal "AI".
type Sender struct {
	Kind  SenderKind `json:"-"`
	ID    string     `json:"id,omitempty"`
	Email string     `json:"email,omitempty"`
}

var ErrInvalidSender = errors.New("invalid sender")

func UserSender(id, email string) Sender {
	return Sender{Kind: SenderKindUser, ID: id, Email: email}
}

func AISender() Sender {
	return Sender{Kind: SenderKindAI}
}

// DisplayName devuelve el texto con el que se presenta el remitente.
func (s Sender) DisplayName() string {
	if s.Kind == SenderKindAI {
		return AISenderName
	}
	if s.Email != "" {
		return s.Email
	}
	return s.ID
}

func (s Sender) IsAI() bool {
	return s.Kind == SenderKindAI
}

func (s Sender) MarshalJSON() ([]byte, error) {
	if s.Kind == SenderKindAI {
		return json.Marshal(AISenderName)
	}
	type wireSender struct {
		ID    string `json:"id"`
		Email string `json:"email,omitempty"`
	}
	return json.Marshal(wireSender{ID: s.ID, Email: s.Email})
}

func (s *Sender) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		if strings.EqualFold(strings.TrimSpace(name), AISenderName) {
			*s = AISender()
			return nil
		}
		// Un string distinto de "AI" se interpreta como id de usuario.
		if strings.TrimSpace(name) == "" {
			return ErrInvalidSender
		}
		*s = UserSender(strings.TrimSpace(name), "")
		return nil
	}

	var wire struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return ErrInvalidSender
	}
	if strings.TrimSpace(wire.ID) == "" && strings.TrimSpace(wire.Email) == "" {
		return ErrInvalidSender
	}
	*s = UserSender(strings.TrimSpace(wire.ID), strings.TrimSpace(wire.Email))
	return nil
}

// Message es el payload que viaja dentro de un room. Inmutable una vez
// aceptado para broadcast.
type Message struct {
	Body      string           `json:"message"`
	Sender    Sender           `json:"sender"`
	Timestamp time.Time        `json:"timestamp"`
	FileTree  *FileTreePayload `json:"fileTree,omitempty"`
}
