package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collab-llm/internal/llm"
)

// AIHandler expone la generación directa fuera del chat.
type AIHandler struct {
	logger  *zap.Logger
	client  llm.LLMClient
	timeout time.Duration
}

func NewAIHandler(logger *zap.Logger, client llm.LLMClient, timeout time.Duration) *AIHandler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AIHandler{
		logger:  logger,
		client:  client,
		timeout: timeout,
	}
}

// GetResult maneja GET /ai/get-result?prompt=...
func (h *AIHandler) GetResult(c *gin.Context) {
	prompt := strings.TrimSpace(c.Query("prompt"))
	if prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	raw, err := h.client.Generate(ctx, prompt)
	if err != nil {
		h.logger.Error("ai generation failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "generation failed"})
		return
	}

	result := llm.ParseResult(raw)
	resp := gin.H{"text": result.Text}
	if len(result.FileTree) > 0 {
		resp["fileTree"] = result.FileTree
	}
	c.JSON(http.StatusOK, resp)
}
