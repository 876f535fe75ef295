package ws

import (
	"context"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"collab-llm/internal/domain"
	"collab-llm/internal/llm"
)

type stubLimiter struct {
	allow bool
	keys  []string
}

func (l *stubLimiter) Allow(key string) bool {
	l.keys = append(l.keys, key)
	return l.allow
}

func TestContainsSentinel(t *testing.T) {
	cases := map[string]bool{
		"@ai write a function":   true,
		"please @AI help":        true,
		"PLEASE @Ai HELP":        true,
		"ȺȺȺȺ@ai":                true,
		"İİİİ@AI hola":           true,
		"just chatting":          false,
		"email me at ai@dev.com": false,
		"ȺȺȺȺ sin marcador":      false,
	}
	for body, want := range cases {
		if got := ContainsSentinel(body); got != want {
			t.Fatalf("ContainsSentinel(%q) = %v, want %v", body, got, want)
		}
	}
}

func TestExtractPrompt(t *testing.T) {
	cases := map[string]string{
		"@ai write a hello world function": "write a hello world function",
		"please @AI help me":               "please  help me",
		"trailing @ai":                     "trailing",
		"no sentinel here":                 "no sentinel here",
	}
	for body, want := range cases {
		if got := ExtractPrompt(body); got != want {
			t.Fatalf("ExtractPrompt(%q) = %q, want %q", body, got, want)
		}
	}
}

// Runas cuyo case mapping cambia de longitud en bytes (Ⱥ minúsculiza a una
// runa más larga, İ a una más corta) no deben desalinear el índice del
// sentinel: nada de panics ni prompts con UTF-8 roto.
func TestExtractPromptMultibyteRunes(t *testing.T) {
	cases := map[string]string{
		"ȺȺȺȺ@ai":             "ȺȺȺȺ",
		"İİİİ@AI hola":        "İİİİ hola",
		"ⱥⱥ @Ai escribe algo": "ⱥⱥ  escribe algo",
	}
	for body, want := range cases {
		if got := ExtractPrompt(body); got != want {
			t.Fatalf("ExtractPrompt(%q) = %q, want %q", body, got, want)
		}
		if !utf8.ValidString(ExtractPrompt(body)) {
			t.Fatalf("ExtractPrompt(%q) produced invalid UTF-8", body)
		}
	}
}

func TestTriggerBroadcastsGeneratedText(t *testing.T) {
	hub := NewHub(zap.NewNop())
	projectID := uuid.NewString()
	s1 := newTestSession("u1", "u1@x.com", projectID)
	s2 := newTestSession("u2", "u2@x.com", projectID)
	room := hub.Join(s1)
	hub.Join(s2)

	client := &llm.MockClient{Response: "function hello(){...}"}
	trigger := NewCommandTrigger(client, nil, time.Second, zap.NewNop())

	msg := domain.Message{Body: "@AI write a hello world function", Sender: s1.Sender()}
	room.Broadcast(msg, s1)
	trigger.Inspect(room, msg)

	// s2 recibe primero el mensaje original, después el del agente.
	original := recvMessage(t, s2)
	if original.Body != "@AI write a hello world function" {
		t.Fatalf("unexpected original body: %q", original.Body)
	}
	reply := recvMessage(t, s2)
	if !reply.Sender.IsAI() || reply.Body != "function hello(){...}" {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	// El solicitante también recibe la respuesta del agente.
	mine := recvMessage(t, s1)
	if !mine.Sender.IsAI() || mine.Body != "function hello(){...}" {
		t.Fatalf("unexpected requester reply: %+v", mine)
	}

	prompts := client.Prompts()
	if len(prompts) != 1 || prompts[0] != "write a hello world function" {
		t.Fatalf("unexpected prompts: %v", prompts)
	}

	// Exactamente una respuesta del agente.
	assertNoFrame(t, s1)
	assertNoFrame(t, s2)
}

func TestTriggerHandlesMultibyteBody(t *testing.T) {
	hub := NewHub(zap.NewNop())
	projectID := uuid.NewString()
	s1 := newTestSession("u1", "u1@x.com", projectID)
	room := hub.Join(s1)

	client := &llm.MockClient{Response: "listo"}
	trigger := NewCommandTrigger(client, nil, time.Second, zap.NewNop())

	trigger.Inspect(room, domain.Message{Body: "ȺȺȺȺ@ai", Sender: s1.Sender()})

	reply := recvMessage(t, s1)
	if !reply.Sender.IsAI() || reply.Body != "listo" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	prompts := client.Prompts()
	if len(prompts) != 1 || prompts[0] != "ȺȺȺȺ" {
		t.Fatalf("unexpected prompts: %v", prompts)
	}
}

func TestTriggerFallbackOnGenerationError(t *testing.T) {
	hub := NewHub(zap.NewNop())
	projectID := uuid.NewString()
	s1 := newTestSession("u1", "u1@x.com", projectID)
	s2 := newTestSession("u2", "u2@x.com", projectID)
	room := hub.Join(s1)
	hub.Join(s2)

	client := &llm.MockClient{Err: context.DeadlineExceeded}
	trigger := NewCommandTrigger(client, nil, time.Second, zap.NewNop())

	trigger.Inspect(room, domain.Message{Body: "@ai broken", Sender: s1.Sender()})

	for _, s := range []*Session{s1, s2} {
		reply := recvMessage(t, s)
		if !reply.Sender.IsAI() || reply.Body != FallbackMessage {
			t.Fatalf("unexpected reply: %+v", reply)
		}
	}
}

func TestTriggerTimeoutHitsFallback(t *testing.T) {
	hub := NewHub(zap.NewNop())
	projectID := uuid.NewString()
	s1 := newTestSession("u1", "u1@x.com", projectID)
	room := hub.Join(s1)

	client := &llm.MockClient{
		Response: "too late",
		Delay: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	trigger := NewCommandTrigger(client, nil, 20*time.Millisecond, zap.NewNop())

	trigger.Inspect(room, domain.Message{Body: "@ai slow", Sender: s1.Sender()})

	reply := recvMessage(t, s1)
	if reply.Body != FallbackMessage {
		t.Fatalf("expected fallback, got %q", reply.Body)
	}
}

func TestTriggerIgnoresMessagesWithoutSentinel(t *testing.T) {
	hub := NewHub(zap.NewNop())
	projectID := uuid.NewString()
	s1 := newTestSession("u1", "u1@x.com", projectID)
	room := hub.Join(s1)

	client := &llm.MockClient{Response: "should not appear"}
	trigger := NewCommandTrigger(client, nil, time.Second, zap.NewNop())

	trigger.Inspect(room, domain.Message{Body: "plain chat", Sender: s1.Sender()})

	assertNoFrame(t, s1)
	if len(client.Prompts()) != 0 {
		t.Fatalf("expected no generation calls, got %v", client.Prompts())
	}
}

func TestTriggerIgnoresAISenderMessages(t *testing.T) {
	hub := NewHub(zap.NewNop())
	projectID := uuid.NewString()
	s1 := newTestSession("u1", "u1@x.com", projectID)
	room := hub.Join(s1)

	client := &llm.MockClient{Response: "@ai loop"}
	trigger := NewCommandTrigger(client, nil, time.Second, zap.NewNop())

	// Una respuesta del agente que contiene el sentinel no debe realimentarse.
	trigger.Inspect(room, domain.Message{Body: "@ai what about @ai?", Sender: domain.AISender()})

	assertNoFrame(t, s1)
	if len(client.Prompts()) != 0 {
		t.Fatalf("expected no generation calls, got %v", client.Prompts())
	}
}

func TestTriggerRateLimitedHitsFallback(t *testing.T) {
	hub := NewHub(zap.NewNop())
	projectID := uuid.NewString()
	s1 := newTestSession("u1", "u1@x.com", projectID)
	room := hub.Join(s1)

	client := &llm.MockClient{Response: "never"}
	limiter := &stubLimiter{allow: false}
	trigger := NewCommandTrigger(client, limiter, time.Second, zap.NewNop())

	trigger.Inspect(room, domain.Message{Body: "@ai spam", Sender: s1.Sender()})

	reply := recvMessage(t, s1)
	if reply.Body != FallbackMessage {
		t.Fatalf("expected fallback, got %q", reply.Body)
	}
	if len(client.Prompts()) != 0 {
		t.Fatalf("expected no generation call when rate limited")
	}
	if len(limiter.keys) != 1 || limiter.keys[0] != "u1" {
		t.Fatalf("expected limiter keyed by user id, got %v", limiter.keys)
	}
}

func TestTriggerStructuredResponseCarriesFileTree(t *testing.T) {
	hub := NewHub(zap.NewNop())
	projectID := uuid.NewString()
	s1 := newTestSession("u1", "u1@x.com", projectID)
	room := hub.Join(s1)

	client := &llm.MockClient{Response: `{"text":"scaffold ready","fileTree":{"main.go":"package main"}}`}
	trigger := NewCommandTrigger(client, nil, time.Second, zap.NewNop())

	trigger.Inspect(room, domain.Message{Body: "@ai scaffold a go app", Sender: s1.Sender()})

	reply := recvMessage(t, s1)
	if reply.Body != "scaffold ready" {
		t.Fatalf("unexpected body: %q", reply.Body)
	}
	if reply.FileTree.IsEmpty() {
		t.Fatalf("expected file tree payload")
	}

	snapshot := room.Snapshot()
	if snapshot["main.go"] != "package main" {
		t.Fatalf("expected room file tree updated, got %v", snapshot)
	}
}

func TestTriggerResponseSurvivesRequesterDisconnect(t *testing.T) {
	hub := NewHub(zap.NewNop())
	projectID := uuid.NewString()
	s1 := newTestSession("u1", "u1@x.com", projectID)
	s2 := newTestSession("u2", "u2@x.com", projectID)
	room := hub.Join(s1)
	hub.Join(s2)

	started := make(chan struct{})
	release := make(chan struct{})
	client := &llm.MockClient{
		Response: "late answer",
		Delay: func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		},
	}
	trigger := NewCommandTrigger(client, nil, time.Second, zap.NewNop())

	trigger.Inspect(room, domain.Message{Body: "@ai something", Sender: s1.Sender()})

	<-started
	hub.Leave(s1)
	close(release)

	reply := recvMessage(t, s2)
	if !reply.Sender.IsAI() || reply.Body != "late answer" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}
