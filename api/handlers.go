package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stellarlinkco/chat-eval/internal/llm"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty message"})
		return
	}

	resp, err := s.provider.Complete(c.Request.Context(), &llm.Request{
		System:   s.systemPrompt,
		Messages: []llm.Message{{Role: "user", Content: message}},
	})
	if err != nil {
		respondError(c, http.StatusBadGateway, err)
		return
	}

	answer := strings.TrimSpace(resp.Text)
	if answer == "" {
		c.JSON(http.StatusBadGateway, gin.H{"error": "empty model response"})
		return
	}

	c.JSON(http.StatusOK, chatResponse{Response: answer})
}

func respondError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
