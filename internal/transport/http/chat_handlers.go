package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
	"github.com/vovakirdan/wirechat-relay/internal/store"
)

const maxHistoryLimit = 500

// ChatHandlers exposes read-only views of chat state.
type ChatHandlers struct {
	registry     *core.Registry
	messages     store.MessageStore
	historyLimit int
	log          *zerolog.Logger
}

// NewChatHandlers creates a new chat handlers instance.
func NewChatHandlers(registry *core.Registry, messages store.MessageStore, historyLimit int, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{
		registry:     registry,
		messages:     messages,
		historyLimit: historyLimit,
		log:          logger,
	}
}

// HistoryResponse lists recent broadcast messages.
type HistoryResponse struct {
	Messages []proto.ChatMessage `json:"messages"`
}

// OnlineResponse lists the usernames currently logged in.
type OnlineResponse struct {
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// History returns recent broadcast messages, oldest first.
// GET /api/messages?limit=N
func (h *ChatHandlers) History(c *gin.Context) {
	limit := h.historyLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxHistoryLimit {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	h.log.Debug().Str("requested_by", requester(c)).Int("limit", limit).Msg("history requested")

	msgs, err := h.messages.ListRecentMessages(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Int("limit", limit).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, HistoryResponse{
		Messages: lo.Map(msgs, func(m store.Message, _ int) proto.ChatMessage {
			return chatMessageFrom(core.Message{Sender: m.Sender, Body: m.Body, CreatedAt: m.CreatedAt})
		}),
	})
}

// Online returns the presence snapshot.
// GET /api/users/online
func (h *ChatHandlers) Online(c *gin.Context) {
	users := h.registry.Snapshot()
	h.log.Debug().Str("requested_by", requester(c)).Int("count", len(users)).Msg("online users requested")
	c.JSON(http.StatusOK, OnlineResponse{Count: len(users), Users: users})
}

// requester returns the username AuthMiddleware stored, or "anonymous".
func requester(c *gin.Context) string {
	if username := c.GetString(ContextKeyUsername); username != "" {
		return username
	}
	return "anonymous"
}
