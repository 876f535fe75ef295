package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"collab-llm/internal/domain"
	"collab-llm/internal/service"
)

// TokenVerifier valida un access token y devuelve la identidad que carga.
type TokenVerifier interface {
	ParseAccessToken(token string) (service.Claims, error)
}

// ProjectResolver resuelve un id de proyecto y, con userID no vacío, exige
// membresía.
type ProjectResolver interface {
	Resolve(ctx context.Context, projectID, userID string) (domain.Project, error)
}

// Gateway hace el control de admisión de cada conexión realtime: valida el
// proyecto destino y la credencial antes de permitir el upgrade. Un rechazo
// nunca deja estado parcial: la sesión solo existe después de entrar al hub.
type Gateway struct {
	logger   *zap.Logger
	verifier TokenVerifier
	projects ProjectResolver
	hub      *Hub
	trigger  *CommandTrigger
	upgrader websocket.Upgrader
}

func NewGateway(logger *zap.Logger, verifier TokenVerifier, projects ProjectResolver, hub *Hub, trigger *CommandTrigger) *Gateway {
	return &Gateway{
		logger:   logger,
		verifier: verifier,
		projects: projects,
		hub:      hub,
		trigger:  trigger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				// El CORS real vive en el reverse proxy.
				return true
			},
		},
	}
}

// Handle maneja GET /ws?projectId=... El token viaja en el query param
// "auth" o en el header Authorization.
func (g *Gateway) Handle(c *gin.Context) {
	projectID := strings.TrimSpace(c.Query("projectId"))
	if _, err := uuid.Parse(projectID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return
	}

	project, err := g.projects.Resolve(c.Request.Context(), projectID, "")
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidProjectID):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		case errors.Is(err, service.ErrProjectNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		default:
			g.logger.Error("project resolve failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	token := extractToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication error"})
		return
	}

	claims, err := g.verifier.ParseAccessToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication error"})
		return
	}

	if !project.HasMember(claims.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Authentication error"})
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade ya escribió la respuesta de error.
		g.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	session := &Session{
		id:        uuid.NewString(),
		userID:    claims.UserID,
		userEmail: claims.Email,
		projectID: project.ID,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		hub:       g.hub,
		trigger:   g.trigger,
		logger:    g.logger,
	}

	g.hub.Join(session)

	go session.writePump()
	go session.readPump()
}

func extractToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.Query("auth")); token != "" {
		return token
	}
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}
