package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"categorizer/internal/handler"
)

type Server struct {
	router *gin.Engine
	logger *zap.Logger
}

// NewServer builds the gin router around the categorizer handler.
func NewServer(h *handler.CategorizerHandler, logger *zap.Logger) *Server {
	router := gin.Default()

	s := &Server{
		router: router,
		logger: logger,
	}

	s.setupRoutes(h)

	return s
}

func (s *Server) setupRoutes(h *handler.CategorizerHandler) {
	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	api := s.router.Group("/api/v1")
	{
		api.POST("/predict", h.Predict)
		api.POST("/retrain", h.ForceRetrain)
		api.GET("/status", h.GetStatus)
		api.GET("/model/info", h.GetModelInfo)
		api.GET("/health", h.Health)
	}
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("Server shutting down...")
		return srv.Shutdown(context.Background())
	}
}
