package http

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/plantpulse/plantpulse-backend/internal/agent/repository"
	"github.com/plantpulse/plantpulse-backend/internal/auth"
)

type chatReq struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
	ForceLLM       bool   `json:"force_llm"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing message"})
		return
	}
	msg := strings.TrimSpace(req.Message)
	userID := auth.UserDBID(c)

	conv, err := h.chats.EnsureConversation(c.Request.Context(), req.ConversationID, userID, msg)
	if errors.Is(err, repository.ErrConversationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "conversation not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to open conversation"})
		return
	}

	if err := h.chats.AppendMessage(c.Request.Context(), &repository.Message{
		ConversationID: conv.ID, Role: "user", Text: msg,
	}); err != nil {
		log.Printf("[agent] persist user message failed: %v", err)
	}

	ans, err := h.agent.Ask(c.Request.Context(), msg, req.ForceLLM)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": "agent: " + err.Error()})
		return
	}

	if err := h.chats.AppendMessage(c.Request.Context(), &repository.Message{
		ConversationID: conv.ID, Role: "assistant", Text: ans.Text,
		Source: ans.Source, Route: ans.Classification.Route,
	}); err != nil {
		log.Printf("[agent] persist answer failed: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":              true,
		"conversation_id": conv.ID,
		"answer":          ans.Text,
		"source":          ans.Source,
		"classification":  ans.Classification,
		"data":            ans.Data,
	})
}

func (h *Handler) listConversations(c *gin.Context) {
	items, err := h.chats.ListConversations(c.Request.Context(), auth.UserDBID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to list conversations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "conversations": items})
}

func (h *Handler) messages(c *gin.Context) {
	items, err := h.chats.Messages(c.Request.Context(), c.Param("id"), auth.UserDBID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to list messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "messages": items})
}

func (h *Handler) deleteConversation(c *gin.Context) {
	err := h.chats.DeleteConversation(c.Request.Context(), c.Param("id"), auth.UserDBID(c))
	if errors.Is(err, repository.ErrConversationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "conversation not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to delete conversation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
