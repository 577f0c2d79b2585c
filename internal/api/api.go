package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wuwenbin0122/vishai/internal/auth"
	"github.com/wuwenbin0122/vishai/internal/chat"
	"github.com/wuwenbin0122/vishai/internal/db"
)

type Handler struct {
	authService *auth.Service
	chatService *chat.Service
	socket      gin.HandlerFunc
	dbState     func(context.Context) string
	logger      *zap.SugaredLogger
}

// Options carries the optional collaborators of a Handler.
type Options struct {
	// Socket serves GET /ws; the route is skipped when nil.
	Socket gin.HandlerFunc
	// DBState feeds the health probe; "unknown" when nil.
	DBState func(context.Context) string
	Logger  *zap.SugaredLogger
}

func NewHandler(authService *auth.Service, chatService *chat.Service, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Handler{
		authService: authService,
		chatService: chatService,
		socket:      opts.Socket,
		dbState:     opts.DBState,
		logger:      logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.handleRoot)
	if h.socket != nil {
		router.GET("/ws", h.socket)
	}

	apiGroup := router.Group("/api")
	apiGroup.GET("/health", h.handleHealth)

	authGroup := apiGroup.Group("/auth")
	authGroup.POST("/signup", h.handleSignup)
	authGroup.POST("/login", h.handleLogin)
	authGroup.POST("/logout", h.RequireAuth(), h.handleLogout)

	userGroup := apiGroup.Group("/user", h.RequireAuth())
	userGroup.GET("/profile", h.handleProfile)

	chatGroup := apiGroup.Group("/chat", h.RequireAuth())
	chatGroup.POST("", h.handleSendMessage)
	chatGroup.POST("/message", h.handleSendMessage)
	chatGroup.GET("/history", h.handleHistory)
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

func (h *Handler) handleRoot(c *gin.Context) {
	c.String(http.StatusOK, "Server is running...")
}

func (h *Handler) handleHealth(c *gin.Context) {
	state := db.StateUnknown
	if h.dbState != nil {
		state = h.dbState(c.Request.Context())
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"dbState": state,
	})
}

func (h *Handler) handleSignup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.authService.Signup(c.Request.Context(), auth.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			h.writeError(c, http.StatusBadRequest, "User already exists", err)
		case errors.Is(err, auth.ErrUsernameRequired), errors.Is(err, auth.ErrEmailRequired):
			h.writeError(c, http.StatusBadRequest, "Please enter all fields", err)
		case errors.Is(err, auth.ErrPasswordTooWeak):
			h.writeError(c, http.StatusBadRequest, "Password must be at least 6 characters", err)
		default:
			h.writeError(c, http.StatusInternalServerError, "Server error during signup", err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":     result.Token,
		"expiresAt": result.ExpiresAt.Format(time.RFC3339),
		"message":   "User registered successfully",
		"user":      result.User,
	})
}

func (h *Handler) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.writeError(c, http.StatusBadRequest, "Invalid credentials", err)
			return
		}
		h.writeError(c, http.StatusInternalServerError, "Server error during login", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     result.Token,
		"expiresAt": result.ExpiresAt.Format(time.RFC3339),
		"message":   "Login successful",
	})
}

func (h *Handler) handleLogout(c *gin.Context) {
	if err := h.authService.Revoke(c.Request.Context(), Claims(c)); err != nil {
		h.writeError(c, http.StatusInternalServerError, "Server error during logout", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *Handler) handleProfile(c *gin.Context) {
	user, err := h.authService.Profile(c.Request.Context(), UserID(c))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			h.writeError(c, http.StatusNotFound, "User not found", err)
			return
		}
		h.writeError(c, http.StatusInternalServerError, "Server error while fetching profile", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *Handler) handleSendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		h.writeError(c, http.StatusBadRequest, "Message text is required", chat.ErrEmptyText)
		return
	}

	turn, err := h.chatService.Send(c.Request.Context(), UserID(c), req.Text)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyText) {
			h.writeError(c, http.StatusBadRequest, "Message text is required", err)
			return
		}
		h.writeError(c, http.StatusInternalServerError, "Server error while sending message", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userMessage": turn.User.Text,
		"aiMessage":   turn.AI.Text,
	})
}

func (h *Handler) handleHistory(c *gin.Context) {
	messages, err := h.chatService.History(c.Request.Context(), UserID(c))
	if err != nil {
		h.writeError(c, http.StatusInternalServerError, "Server error while fetching chat history", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// writeError sends {message}; the underlying error is logged, never returned.
func (h *Handler) writeError(c *gin.Context, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Errorw(message, "path", c.FullPath(), "error", err)
	} else {
		h.logger.Debugw(message, "path", c.FullPath(), "error", err)
	}

	c.AbortWithStatusJSON(status, gin.H{"message": message})
}
