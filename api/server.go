// Package api serves the local chat endpoint that evaluation runs target:
// POST /chat answers questions through a configured model provider and
// GET /health reports readiness.
package api

import (
	"errors"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stellarlinkco/chat-eval/internal/config"
	"github.com/stellarlinkco/chat-eval/internal/llm"
)

type Server struct {
	router       *gin.Engine
	provider     llm.Provider
	systemPrompt string
	config       *config.Config
}

func NewServer(cfg *config.Config, provider llm.Provider) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("api: nil config")
	}
	if provider == nil {
		return nil, errors.New("api: nil provider")
	}

	systemPrompt, err := loadSystemPrompt(cfg.Server.SystemPromptFile)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	s := &Server{
		router:       r,
		provider:     provider,
		systemPrompt: systemPrompt,
		config:       cfg,
	}
	s.registerMiddleware()
	s.registerRoutes()
	return s, nil
}

func (s *Server) Run(addr string) error {
	if s == nil || s.router == nil {
		return errors.New("api: nil server")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = ":8000"
	}
	return s.router.Run(addr)
}

func (s *Server) registerRoutes() {
	if s == nil || s.router == nil {
		return
	}
	s.router.GET("/health", s.handleHealth)
	s.router.POST("/chat", s.handleChat)
}

// loadSystemPrompt reads the persona file; a missing file is fine, the
// server just answers without one.
func loadSystemPrompt(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
