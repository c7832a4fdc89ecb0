package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plantpulse/plantpulse-backend/internal/agent/classifier"
	"github.com/plantpulse/plantpulse-backend/internal/agent/llm"
	"github.com/plantpulse/plantpulse-backend/internal/agent/repository"
	"github.com/plantpulse/plantpulse-backend/internal/auth"
)

// chatStream answers over Server-Sent Events. Rule answers are chunked
// word-wise so the UI renders them the same way as LLM output; LLM answers
// forward Ollama's NDJSON chunks as they arrive.
func (h *Handler) chatStream(c *gin.Context) {
	msg := strings.TrimSpace(c.Query("message"))
	if msg == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing message"})
		return
	}
	forceLLM := c.Query("force_llm") == "true"
	userID := auth.UserDBID(c)

	conv, err := h.chats.EnsureConversation(c.Request.Context(), c.Query("conversation_id"), userID, msg)
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

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "streaming unsupported"})
		return
	}

	ctx := c.Request.Context()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Fprint(c.Writer, ": keep-alive\n\n")
				flusher.Flush()
			}
		}
	}()

	cl := classifier.Classify(msg, forceLLM)

	var answer, source string
	switch cl.Route {
	case classifier.RouteGuardrail:
		answer = "I can help with OEE, downtime, quality, alerts and equipment status. That question is outside what I cover."
		source = repository.SourceGuardrails
		fmt.Fprintf(c.Writer, "event: delta\ndata: %s\n\n", jsonString(answer))
		flusher.Flush()

	case classifier.RouteAgent:
		ans, err := h.agent.Ask(ctx, msg, false)
		if err != nil {
			h.streamFail(c, flusher, conv.ID, "agent unavailable")
			return
		}
		answer, source = ans.Text, ans.Source
		// Word-wise chunks keep the UI's typing effect consistent.
		for _, word := range strings.SplitAfter(ans.Text, " ") {
			select {
			case <-ctx.Done():
				return
			default:
			}
			fmt.Fprintf(c.Writer, "event: delta\ndata: %s\n\n", jsonString(word))
			flusher.Flush()
		}

	default:
		full, err := h.llm.Stream(ctx, h.agent.LLMPrompt(ctx, msg), func(ch llm.Chunk) {
			if ch.Response != "" {
				fmt.Fprintf(c.Writer, "event: delta\ndata: %s\n\n", jsonString(ch.Response))
				flusher.Flush()
			}
		})
		if err != nil && full == "" {
			h.streamFail(c, flusher, conv.ID, "llm unavailable")
			return
		}
		answer, source = full, repository.SourceLLM
	}

	if err := h.chats.AppendMessage(c.Request.Context(), &repository.Message{
		ConversationID: conv.ID, Role: "assistant", Text: answer,
		Source: source, Route: cl.Route,
	}); err != nil {
		log.Printf("[agent] persist answer failed: %v", err)
	}

	done, _ := json.Marshal(gin.H{
		"ok":              true,
		"conversation_id": conv.ID,
		"route":           cl.Route,
		"source":          source,
		"classification":  cl,
	})
	fmt.Fprintf(c.Writer, "event: done\ndata: %s\n\n", done)
	flusher.Flush()
}

func (h *Handler) streamFail(c *gin.Context, flusher http.Flusher, convID, msg string) {
	payload, _ := json.Marshal(gin.H{"ok": false, "conversation_id": convID, "error": msg})
	fmt.Fprintf(c.Writer, "event: done\ndata: %s\n\n", payload)
	flusher.Flush()
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
