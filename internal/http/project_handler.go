package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collab-llm/internal/service"
)

// ProjectHandler mantiene dependencias para endpoints de proyectos.
type ProjectHandler struct {
	logger      *zap.Logger
	projectServ *service.ProjectService
}

// NewProjectHandler crea una instancia de ProjectHandler con dependencias necesarias.
func NewProjectHandler(logger *zap.Logger, projectServ *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		logger:      logger,
		projectServ: projectServ,
	}
}

// Create maneja POST /projects/create.
func (h *ProjectHandler) Create(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid create project request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	project, err := h.projectServ.Create(c.Request.Context(), req.Name, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProjectNameEmpty), errors.Is(err, service.ErrInvalidUserID):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("create project failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create project"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"project": project})
}

// ListAll maneja GET /projects/all: los proyectos donde el solicitante es
// miembro.
func (h *ProjectHandler) ListAll(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
		return
	}

	projects, err := h.projectServ.ListForUser(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("list projects failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list projects"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// AddUser maneja PUT /projects/add-user.
func (h *ProjectHandler) AddUser(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
		return
	}

	var req struct {
		ProjectID string   `json:"projectId" binding:"required"`
		Users     []string `json:"users" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid add user request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	project, err := h.projectServ.AddUsers(c.Request.Context(), req.ProjectID, req.Users, claims.UserID)
	if err != nil {
		h.writeProjectError(c, err, "add user failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": project})
}

// GetByID maneja GET /projects/get-project/:projectId.
func (h *ProjectHandler) GetByID(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
		return
	}

	project, err := h.projectServ.Resolve(c.Request.Context(), c.Param("projectId"), claims.UserID)
	if err != nil {
		h.writeProjectError(c, err, "get project failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": project})
}

func (h *ProjectHandler) writeProjectError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, service.ErrInvalidProjectID), errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrNoUsersToAdd):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrProjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
	case errors.Is(err, service.ErrNotProjectMember):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		h.logger.Error(logMsg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
