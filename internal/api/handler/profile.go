package handler

import (
	"anonchat/backend/internal/auth"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetPublicUserInfo повертає публічний профіль користувача.
func (h *Handler) GetPublicUserInfo(c *gin.Context) {
	user, err := h.Auth.GetByUsername(c.Param("username"))
	if errors.Is(err, auth.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"displayed_name": user.DisplayedName})
}

// GetAllUserInfo повертає повний профіль поточного користувача.
func (h *Handler) GetAllUserInfo(c *gin.Context) {
	user, err := h.Auth.GetByID(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"public": gin.H{
			"displayed_name": user.DisplayedName,
			"interests":      user.Interests,
		},
		"private": gin.H{
			"username": user.Username,
		},
	})
}

type modifyProfileRequest struct {
	DisplayedName string   `json:"displayed_name" binding:"required"`
	Interests     []string `json:"interests"`
}

// ModifyUserInfo оновлює профіль поточного користувача.
func (h *Handler) ModifyUserInfo(c *gin.Context) {
	var req modifyProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Auth.UpdateProfile(c.GetString("user_id"), req.DisplayedName, req.Interests); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}
