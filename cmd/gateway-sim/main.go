package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SessionState mirrors what the real Node bridge reports per user.
type SessionState string

const (
	StateDisconnected SessionState = "disconnected"
	StateQR           SessionState = "qr"
	StateConnected    SessionState = "connected"
)

type SendMessageRequest struct {
	UserID  int64  `json:"userId" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
	Message string `json:"message" binding:"required"`
}

type SendMessageResponse struct {
	MessageID string    `json:"message_id"`
	Phone     string    `json:"phone"`
	SentAt    time.Time `json:"sent_at"`
}

type session struct {
	State       SessionState `json:"status"`
	QR          string       `json:"qr,omitempty"`
	ConnectedAt *time.Time   `json:"connected_at,omitempty"`
}

// MockBridge simulates the WhatsApp web-session bridge: one session
// per user, configurable delivery rate and latency.
type MockBridge struct {
	mu           sync.Mutex
	sessions     map[int64]*session
	deliveryRate float64
	minDelay     time.Duration
	maxDelay     time.Duration
	rng          *rand.Rand
}

func NewMockBridge(deliveryRate float64, minDelay, maxDelay time.Duration) *MockBridge {
	return &MockBridge{
		sessions:     make(map[int64]*session),
		deliveryRate: deliveryRate,
		minDelay:     minDelay,
		maxDelay:     maxDelay,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *MockBridge) start(userID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[userID]
	if ok && s.State == StateConnected {
		return s
	}

	// First start hands out a QR; the next one "scans" it.
	if !ok || s.State == StateDisconnected {
		s = &session{
			State: StateQR,
			QR:    "data:image/png;base64," + uuid.New().String(),
		}
		b.sessions[userID] = s
		return s
	}

	now := time.Now()
	s.State = StateConnected
	s.QR = ""
	s.ConnectedAt = &now
	return s
}

func (b *MockBridge) status(userID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.sessions[userID]; ok {
		return s
	}
	return &session{State: StateDisconnected}
}

func (b *MockBridge) disconnect(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[userID] = &session{State: StateDisconnected}
}

func (b *MockBridge) connected(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[userID]
	return ok && s.State == StateConnected
}

func (b *MockBridge) shouldDeliver() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.Float64() < b.deliveryRate
}

func (b *MockBridge) randomDelay() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	delta := b.maxDelay - b.minDelay
	if delta <= 0 {
		return b.minDelay
	}
	return b.minDelay + time.Duration(b.rng.Int63n(int64(delta)))
}

type Handler struct {
	bridge *MockBridge
}

func NewHandler(bridge *MockBridge) *Handler {
	return &Handler{bridge: bridge}
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	if !h.bridge.connected(req.UserID) {
		log.Warn().Int64("user_id", req.UserID).Msg("send rejected, session not connected")
		c.JSON(http.StatusBadGateway, gin.H{"error": "session not connected"})
		return
	}

	time.Sleep(h.bridge.randomDelay())

	if !h.bridge.shouldDeliver() {
		log.Warn().Int64("user_id", req.UserID).Str("phone", req.Phone).Msg("simulated delivery failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "message could not be delivered"})
		return
	}

	log.Info().Int64("user_id", req.UserID).Str("phone", req.Phone).Msg("message delivered")
	c.JSON(http.StatusOK, SendMessageResponse{
		MessageID: uuid.New().String(),
		Phone:     req.Phone,
		SentAt:    time.Now(),
	})
}

func (h *Handler) Start(c *gin.Context) {
	var req struct {
		UserID int64 `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	s := h.bridge.start(req.UserID)
	log.Info().Int64("user_id", req.UserID).Str("state", string(s.State)).Msg("session start requested")
	c.JSON(http.StatusOK, s)
}

func (h *Handler) Status(c *gin.Context) {
	var userID int64
	if _, err := fmt.Sscanf(c.Query("userId"), "%d", &userID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}
	c.JSON(http.StatusOK, h.bridge.status(userID))
}

func (h *Handler) Disconnect(c *gin.Context) {
	var req struct {
		UserID int64 `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	h.bridge.disconnect(req.UserID)
	log.Info().Int64("user_id", req.UserID).Msg("session disconnected")
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}

func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request processed")
	})

	router.POST("/send-message", handler.SendMessage)
	router.POST("/start", handler.Start)
	router.GET("/status", handler.Status)
	router.POST("/disconnect", handler.Disconnect)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := getEnv("PORT", "3001")
	deliveryRate := getEnvFloat("DELIVERY_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 100*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 2*time.Second)

	log.Info().
		Str("port", port).
		Float64("delivery_rate", deliveryRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting mock WhatsApp bridge")

	bridge := NewMockBridge(deliveryRate, minDelay, maxDelay)
	handler := NewHandler(bridge)
	router := SetupRouter(handler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
