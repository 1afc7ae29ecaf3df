package ui

import (
	"net/http"
	"strconv"

	"gofunnel/app"
	"gofunnel/domain/core"

	"github.com/gin-gonic/gin"
)

// handleHealth reports liveness
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleCreateAnalysis runs one funnel analysis from the request body
func (s *Server) handleCreateAnalysis(c *gin.Context) {
	var req app.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	result, err := s.service.Run(c.Request.Context(), req)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// handleCreateBatch runs several analyses concurrently and reports each
// outcome in request order
func (s *Server) handleCreateBatch(c *gin.Context) {
	var reqs []app.AnalysisRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(reqs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty batch"})
		return
	}

	items, err := s.service.RunBatch(c.Request.Context(), reqs)
	if err != nil {
		s.renderError(c, err)
		return
	}

	out := make([]gin.H, len(items))
	for i, item := range items {
		if item.Err != nil {
			out[i] = gin.H{"error": item.Err.Error()}
			continue
		}
		out[i] = gin.H{"result": item.Result}
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

// handleGetAnalysis returns one persisted analysis
func (s *Server) handleGetAnalysis(c *gin.Context) {
	id := core.AnalysisID(c.Param("id"))

	result, err := s.service.GetAnalysis(c.Request.Context(), id)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleListAnalyses returns recent persisted analyses
func (s *Server) handleListAnalyses(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	results, err := s.service.ListAnalyses(c.Request.Context(), limit, offset)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analyses": results, "count": len(results)})
}

// handleDeleteAnalysis removes a persisted analysis
func (s *Server) handleDeleteAnalysis(c *gin.Context) {
	id := core.AnalysisID(c.Param("id"))

	if err := s.service.DeleteAnalysis(c.Request.Context(), id); err != nil {
		s.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// renderError maps domain error categories onto HTTP statuses
func (s *Server) renderError(c *gin.Context, err error) {
	switch {
	case core.IsInputError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case core.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case core.IsComputationError(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
