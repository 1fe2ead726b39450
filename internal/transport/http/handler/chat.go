package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gopherchat/internal/app"
	"gopherchat/internal/transport/http/middleware"
	"gopherchat/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type SendMessageRequest struct {
	Message string `json:"message" binding:"max=32000"`
}

type historyItem struct {
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Please login first")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.chatService.HandleTurn(c.Request.Context(), sess, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrValidation):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrUnauthenticated):
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Please login first")
		case errors.Is(err, app.ErrBackend):
			response.Error(c, http.StatusInternalServerError, response.CodeBackend, "the assistant is unavailable, please try again")
		case errors.Is(err, app.ErrStorage):
			response.Error(c, http.StatusInternalServerError, response.CodeStorage, "could not save your message")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "send message failed")
		}
		return
	}

	status := "success"
	if !result.Persisted {
		status = "unsaved"
	}
	response.OK(c, gin.H{
		"response": result.Reply,
		"status":   status,
	})
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Please login first")
		return
	}

	entries, err := h.chatService.History(c.Request.Context(), sess)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeStorage, "get history failed")
		return
	}

	history := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		history = append(history, historyItem{Role: e.Role, Message: e.Message, Timestamp: e.CreatedAt})
	}
	response.OK(c, gin.H{"history": history})
}

func (h *ChatHandler) ClearHistory(c *gin.Context) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "Please login first")
		return
	}

	if err := h.chatService.ClearHistory(c.Request.Context(), sess); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeStorage, "clear history failed")
		return
	}
	response.OK(c, gin.H{"message": "Chat history cleared"})
}
