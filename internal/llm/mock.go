package llm

import (
	"context"
	"sync"
)

// MockClient permite tests sin llamar a un LLM real. Es seguro para uso
// concurrente porque el trigger de comandos lo invoca desde goroutines.
type MockClient struct {
	Response string
	Err      error
	Delay    func(ctx context.Context) error

	mu      sync.Mutex
	prompts []string
}

func (m *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.Delay != nil {
		if err := m.Delay(ctx); err != nil {
			return "", err
		}
	}
	return m.Response, m.Err
}

// Prompts devuelve una copia de los prompts recibidos hasta el momento.
func (m *MockClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
