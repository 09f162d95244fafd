package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/memory"
)

const (
	defaultSearchLimit = 5
	defaultListLimit   = 10
)

// ChatRequest is the body of POST /chat_stream. GET takes the same fields
// as query parameters.
type ChatRequest struct {
	ConvID       string `json:"conv_id" form:"conv_id"`
	Message      string `json:"message" form:"message"`
	ThinkingMode string `json:"thinking_mode" form:"thinking_mode"`
	UserID       string `json:"user_id" form:"user_id"`
}

// SearchRequest is the body of POST /search
type SearchRequest struct {
	Query  string `json:"query" binding:"required"`
	Limit  int    `json:"limit"`
	ConvID string `json:"conv_id"`
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"model":  s.gen.Model(),
				"error":  err.Error(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"provider": s.gen.Name(),
		"model":    s.gen.Model(),
	})
}

func (s *Server) handleCreateConversation(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"conv_id": uuid.NewString()})
}

func (s *Server) handleClearConversation(c *gin.Context) {
	convID := c.Param("conv_id")
	ctx := c.Request.Context()

	s.inflight.Cancel(convID)
	if err := s.store.Clear(ctx, convID); err != nil {
		s.log.Error("Failed to clear conversation", "conv_id", convID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	if s.index != nil {
		if err := s.index.Forget(ctx, convID); err != nil {
			s.log.Warn("Failed to drop indexed messages", "conv_id", convID, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "conversation cleared", "conv_id": convID})
}

func (s *Server) handleListConversations(c *gin.Context) {
	userID := c.DefaultQuery("user_id", memory.AnonymousUser)
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "limit must be a positive integer"})
		return
	}

	conversations, err := s.store.List(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Error listing conversations: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

func (s *Server) handleSearch(c *gin.Context) {
	if s.index == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"detail": "Vector search is not available."})
		return
	}

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultSearchLimit
	}

	results, err := s.index.Search(c.Request.Context(), req.Query, req.Limit, req.ConvID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Search error: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleChatStream(c *gin.Context) {
	var req ChatRequest
	var err error
	if c.Request.Method == http.MethodPost {
		err = c.ShouldBindJSON(&req)
	} else {
		err = c.ShouldBindQuery(&req)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "message is required"})
		return
	}
	if req.ConvID == "" {
		req.ConvID = uuid.NewString()
	}
	if req.UserID == "" {
		req.UserID = memory.AnonymousUser
	}

	s.generate(c, req)
}
