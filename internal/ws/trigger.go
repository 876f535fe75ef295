package ws

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"collab-llm/internal/domain"
	"collab-llm/internal/llm"
	"collab-llm/internal/service"
)

// Sentinel es el marcador que dispara la invocación del agente dentro de un
// mensaje. El match es case-insensitive.
const Sentinel = "@ai"

// FallbackMessage es la respuesta fija que se publica cuando la generación
// falla o no responde a tiempo.
const FallbackMessage = "AI encountered an error processing your request."

const defaultGenerateTimeout = 30 * time.Second

// CommandTrigger inspecciona mensajes aceptados en busca del sentinel y,
// cuando aparece, invoca al LLM en una goroutine aparte. La invocación no
// bloquea el broadcast del mensaje original ni tiene cancelación por
// desconexión del solicitante: si el room sigue vivo, la respuesta llega.
type CommandTrigger struct {
	client  llm.LLMClient
	limiter service.AIRateLimiter
	timeout time.Duration
	logger  *zap.Logger
}

func NewCommandTrigger(client llm.LLMClient, limiter service.AIRateLimiter, timeout time.Duration, logger *zap.Logger) *CommandTrigger {
	if timeout <= 0 {
		timeout = defaultGenerateTimeout
	}
	return &CommandTrigger{
		client:  client,
		limiter: limiter,
		timeout: timeout,
		logger:  logger,
	}
}

// sentinelIndex busca la primera ocurrencia del sentinel con fold ASCII
// byte a byte. El sentinel es ASCII puro, así que el fold no altera
// longitudes y el índice devuelto es válido sobre el string original,
// aunque el cuerpo traiga runas multibyte.
func sentinelIndex(body string) int {
	for i := 0; i+len(Sentinel) <= len(body); i++ {
		j := 0
		for j < len(Sentinel) {
			c := body[i+j]
			if 'A' <= c && c <= 'Z' {
				c += 'a' - 'A'
			}
			if c != Sentinel[j] {
				break
			}
			j++
		}
		if j == len(Sentinel) {
			return i
		}
	}
	return -1
}

// ContainsSentinel indica si el cuerpo contiene el marcador del agente.
func ContainsSentinel(body string) bool {
	return sentinelIndex(body) != -1
}

// ExtractPrompt devuelve el cuerpo sin la primera ocurrencia del sentinel,
// recortado de espacios.
func ExtractPrompt(body string) string {
	idx := sentinelIndex(body)
	if idx == -1 {
		return strings.TrimSpace(body)
	}
	return strings.TrimSpace(body[:idx] + body[idx+len(Sentinel):])
}

// Inspect evalúa un mensaje ya aceptado. Exactamente una respuesta con
// remitente "AI" termina en el room por cada mensaje con sentinel: la
// generada, o el fallback fijo si la generación falla, expira o el
// remitente está rate-limiteado.
func (t *CommandTrigger) Inspect(room *Room, msg domain.Message) {
	if t == nil || t.client == nil || room == nil {
		return
	}
	if msg.Sender.IsAI() || !ContainsSentinel(msg.Body) {
		return
	}

	prompt := ExtractPrompt(msg.Body)

	if t.limiter != nil && !t.limiter.Allow(msg.Sender.ID) {
		if t.logger != nil {
			t.logger.Warn("ai invocation rate limited",
				zap.String("project_id", room.ProjectID()),
				zap.String("user_id", msg.Sender.ID),
			)
		}
		room.Broadcast(domain.Message{
			Sender: domain.AISender(),
			Body:   FallbackMessage,
		}, nil)
		return
	}

	go t.generate(room, prompt)
}

func (t *CommandTrigger) generate(room *Room, prompt string) {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	raw, err := t.client.Generate(ctx, prompt)
	if err != nil {
		if t.logger != nil {
			t.logger.Error("ai generation failed",
				zap.String("project_id", room.ProjectID()),
				zap.Error(err),
			)
		}
		room.Broadcast(domain.Message{
			Sender: domain.AISender(),
			Body:   FallbackMessage,
		}, nil)
		return
	}

	result := llm.ParseResult(raw)
	reply := domain.Message{
		Sender: domain.AISender(),
		Body:   result.Text,
	}
	if reply.Body == "" {
		reply.Body = raw
	}
	if len(result.FileTree) > 0 {
		reply.FileTree = domain.FileTreePayloadFromMap(result.FileTree)
	}

	// excludeSender=false: la respuesta también llega al solicitante.
	room.Broadcast(reply, nil)
}
