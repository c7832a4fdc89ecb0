package http

import (
	"github.com/gin-gonic/gin"

	"github.com/plantpulse/plantpulse-backend/internal/agent/llm"
	"github.com/plantpulse/plantpulse-backend/internal/agent/repository"
	"github.com/plantpulse/plantpulse-backend/internal/agent/service"
)

type Handler struct {
	agent *service.Agent
	llm   *llm.Client
	chats *repository.ChatRepo
}

func New(agent *service.Agent, llmClient *llm.Client, chats *repository.ChatRepo) *Handler {
	return &Handler{agent: agent, llm: llmClient, chats: chats}
}

func (h *Handler) Register(r gin.IRouter) {
	r.POST("/agent/chat", h.chat)
	r.GET("/agent/chat/stream", h.chatStream)
	r.GET("/agent/conversations", h.listConversations)
	r.GET("/agent/conversations/:id", h.messages)
	r.DELETE("/agent/conversations/:id", h.deleteConversation)
}
