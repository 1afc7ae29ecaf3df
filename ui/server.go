package ui

import (
	"log"

	"gofunnel/app"

	"github.com/gin-gonic/gin"
)

// Server exposes the analysis service over a JSON HTTP API
type Server struct {
	router  *gin.Engine
	service *app.AnalysisService
}

// NewServer creates a new API server instance
func NewServer(service *app.AnalysisService) *Server {
	s := &Server{
		router:  gin.Default(),
		service: service,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api/v1")
	{
		api.POST("/analyses", s.handleCreateAnalysis)
		api.POST("/analyses/batch", s.handleCreateBatch)
		api.GET("/analyses", s.handleListAnalyses)
		api.GET("/analyses/:id", s.handleGetAnalysis)
		api.DELETE("/analyses/:id", s.handleDeleteAnalysis)
	}
}

// Start runs the HTTP server on the given address
func (s *Server) Start(addr string) error {
	log.Printf("[Server] listening on %s", addr)
	return s.router.Run(addr)
}

// Router exposes the gin engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}
