package httpapi

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/roach88/hiscore/internal/model"
	"github.com/roach88/hiscore/internal/signer"
)

// SignerHandler serves POST /authorize.
type SignerHandler struct {
	signer  *signer.Signer
	origins []string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// SignerOption configures a SignerHandler.
type SignerOption func(*SignerHandler)

// WithAllowedOrigins sets the CORS allow-list. The first entry is the
// fallback origin for requests from anywhere else.
func WithAllowedOrigins(origins []string) SignerOption {
	return func(h *SignerHandler) {
		h.origins = origins
	}
}

// WithRateLimit admits perSecond requests with the given burst.
// perSecond <= 0 disables limiting.
func WithRateLimit(perSecond float64, burst int) SignerOption {
	return func(h *SignerHandler) {
		if perSecond <= 0 {
			h.limiter = nil
			return
		}
		h.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithSignerLogger sets the handler logger.
func WithSignerLogger(logger *slog.Logger) SignerOption {
	return func(h *SignerHandler) {
		h.logger = logger
	}
}

// NewSignerHandler wraps s.
func NewSignerHandler(s *signer.Signer, opts ...SignerOption) *SignerHandler {
	h := &SignerHandler{signer: s, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts /authorize and /healthz.
func (h *SignerHandler) RegisterRoutes(router *gin.Engine) {
	router.Any("/authorize", h.authorize)
	router.GET("/healthz", h.health)
}

// authorizeRequest keeps raw fields so type errors map to the right message.
type authorizeRequest struct {
	Address json.RawMessage `json:"address"`
	Score   json.RawMessage `json:"score"`
}

func (h *SignerHandler) authorize(c *gin.Context) {
	h.setCORS(c)

	if c.Request.Method == http.MethodOptions {
		c.Status(http.StatusOK)
		return
	}
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
		return
	}
	if h.limiter != nil && !h.limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
		return
	}

	var req authorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = authorizeRequest{}
	}

	var address string
	if err := json.Unmarshal(req.Address, &address); err != nil || !model.IsHexAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address"})
		return
	}
	score, ok := parseScore(req.Score, h.signer.MaxScore())
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid score"})
		return
	}

	auth, err := h.signer.Authorize(c.Request.Context(), address, score)
	if err != nil {
		switch {
		case model.HasCode(err, model.CodeInvalidAddress):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address"})
		case model.HasCode(err, model.CodeInvalidScore):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid score"})
		case model.HasCode(err, model.CodeSignerNotConfigured):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server configuration error"})
		default:
			h.logger.Error("authorize failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign score"})
		}
		return
	}

	c.JSON(http.StatusOK, auth)
}

// parseScore accepts a JSON number that is a whole value in [1, max].
func parseScore(raw json.RawMessage, max uint64) (uint64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if f <= 0 || f != math.Trunc(f) || f > float64(max) {
		return 0, false
	}
	return uint64(f), true
}

func (h *SignerHandler) setCORS(c *gin.Context) {
	if len(h.origins) == 0 {
		return
	}
	origin := c.GetHeader("Origin")
	if !slices.Contains(h.origins, origin) {
		origin = h.origins[0]
	}
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type")
	c.Header("Vary", "Origin")
}

func (h *SignerHandler) health(c *gin.Context) {
	addr := ""
	if h.signer.Configured() {
		addr = h.signer.Address().String()
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "signer": addr})
}
