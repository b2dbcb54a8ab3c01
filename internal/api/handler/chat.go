package handler

import (
	"anonchat/backend/internal/chathub"
	"anonchat/backend/internal/models"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// StartSearch parks the caller in the matchmaking slot or pairs them
// with the searcher already waiting. The request blocks until a partner
// arrives or the caller aborts from another request.
func (h *Handler) StartSearch(c *gin.Context) {
	userID := c.GetString("user_id")

	chatID, err := h.Broker.Search(userID)
	switch {
	case errors.Is(err, chathub.ErrAlreadySearching):
		c.JSON(http.StatusConflict, gin.H{"error": "Already searching"})
		return
	case errors.Is(err, chathub.ErrSearchAborted):
		c.JSON(http.StatusGone, gin.H{"error": "Search aborted"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chat_id": chatID})
}

// AbortSearch releases the caller's own pending search.
func (h *Handler) AbortSearch(c *gin.Context) {
	userID := c.GetString("user_id")

	if err := h.Broker.Abort(userID); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Was not searching"})
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// LeaveChat drops the caller's live connection from a chat, if any.
func (h *Handler) LeaveChat(c *gin.Context) {
	userID := c.GetString("user_id")
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	sess, err := h.Registry.LookupOrLoad(chatID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found"})
		return
	}

	sess.Kick(userID)
	h.Registry.RetireIfEmpty(chatID)
	c.JSON(http.StatusOK, gin.H{})
}

type saveChatRequest struct {
	Title string `json:"title" binding:"required"`
}

// SaveChat persists the chat for the caller under the given title.
// Saving an already-saved chat only changes the caller's title.
func (h *Handler) SaveChat(c *gin.Context) {
	userID := c.GetString("user_id")
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	var req saveChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.Registry.LookupOrLoad(chatID)
	if errors.Is(err, chathub.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load chat"})
		return
	}

	if err := sess.Save(userID, req.Title); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save chat"})
		return
	}
	// A freshly loaded chat with no connections should not linger live.
	h.Registry.RetireIfEmpty(chatID)

	c.JSON(http.StatusOK, gin.H{})
}

// ListSavedChats повертає всі збережені чати користувача.
func (h *Handler) ListSavedChats(c *gin.Context) {
	userID := c.GetString("user_id")

	titles, err := h.Storage.ListSavedChats(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list saved chats"})
		return
	}

	chats := lo.MapToSlice(titles, func(chatID, title string) models.SavedChat {
		return models.SavedChat{ChatID: chatID, Title: title}
	})
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

func parseChatID(c *gin.Context) (string, bool) {
	id, err := uuid.Parse(c.Param("chat_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed chat id"})
		return "", false
	}
	return id.String(), true
}
