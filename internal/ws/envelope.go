package ws

import "encoding/json"

// Eventos soportados en el wire.
const (
	EventProjectMessage = "project-message"
	EventFileTreeSync   = "file-tree-sync"
)

// Envelope envuelve todo frame JSON que viaja por el websocket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func marshalEnvelope(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
