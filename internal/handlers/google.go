package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/requestdata"
	"github.com/piyushagarwal-55/classroom-assignment-automatic-solver/internal/services"
)

type GoogleHandler struct {
	googleAuth services.GoogleAuthService
}

func NewGoogleHandler(googleAuth services.GoogleAuthService) *GoogleHandler {
	return &GoogleHandler{googleAuth: googleAuth}
}

func currentUserID(c *gin.Context) uuid.UUID {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		return uuid.Nil
	}
	return rd.UserID
}

// POST /api/google/connect
// The frontend runs the OAuth consent flow and posts the granted tokens.
func (gh *GoogleHandler) Connect(c *gin.Context) {
	var req struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	expiresAt := time.Now().Add(time.Duration(req.ExpiresIn) * time.Second)
	err := gh.googleAuth.SaveTokens(c.Request.Context(), currentUserID(c), req.AccessToken, req.RefreshToken, req.TokenType, expiresAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true})
}

// GET /api/google/status
func (gh *GoogleHandler) Status(c *gin.Context) {
	row, err := gh.googleAuth.Status(c.Request.Context(), currentUserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if row == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "expires_at": row.ExpiresAt})
}

// DELETE /api/google/connect
func (gh *GoogleHandler) Disconnect(c *gin.Context) {
	if err := gh.googleAuth.Disconnect(c.Request.Context(), currentUserID(c)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": false})
}
