package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collab-llm/internal/service"
	"collab-llm/internal/ws"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	jwtSvc *service.JWTService,
	userH *UserHandler,
	projectH *ProjectHandler,
	aiH *AIHandler,
	gateway *ws.Gateway,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging y recovery. El content-type JSON no se
	// fuerza globalmente porque /ws hace upgrade de protocolo.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	auth := JWTAuthMiddleware(jwtSvc)

	users := r.Group("/users")
	users.POST("/register", userH.Register)
	users.POST("/login", userH.Login)
	users.POST("/refresh", userH.Refresh)
	users.GET("/profile", auth, userH.Profile)
	users.GET("/all", auth, userH.ListAll)

	projects := r.Group("/projects", auth)
	projects.POST("/create", projectH.Create)
	projects.GET("/all", projectH.ListAll)
	projects.PUT("/add-user", projectH.AddUser)
	projects.GET("/get-project/:projectId", projectH.GetByID)

	ai := r.Group("/ai", auth)
	ai.GET("/get-result", aiH.GetResult)

	// La admisión del websocket valida token y proyecto por su cuenta.
	r.GET("/ws", gateway.Handle)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
