package httpapi

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/roach88/hiscore/internal/ledger"
	"github.com/roach88/hiscore/internal/model"
	"github.com/roach88/hiscore/internal/ranking"
	"github.com/roach88/hiscore/internal/store"
)

// DefaultEventsLimit is the page size of GET /v1/events without ?limit.
const DefaultEventsLimit = 100

// MaxEventsLimit bounds ?limit on GET /v1/events.
const MaxEventsLimit = 1000

// LedgerHandler serves the /v1 ledger API.
type LedgerHandler struct {
	ledger  *ledger.Ledger
	ranking *ranking.Engine
	store   *store.Store
}

// NewLedgerHandler creates a LedgerHandler.
func NewLedgerHandler(l *ledger.Ledger, r *ranking.Engine, s *store.Store) *LedgerHandler {
	return &LedgerHandler{ledger: l, ranking: r, store: s}
}

// RegisterRoutes mounts the /v1 routes and /healthz.
func (h *LedgerHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.health)

	api := router.Group("/v1")
	{
		api.POST("/scores", h.submitScore)
		api.GET("/players/count", h.playerCount)
		api.GET("/players/:address", h.player)
		api.GET("/players", h.playersPage)
		api.GET("/leaderboard", h.leaderboard)
		api.GET("/skins", h.catalog)
		api.GET("/skins/:address/:skin", h.hasSkin)
		api.POST("/skins/:skin", h.grantSkin)
		api.GET("/events", h.events)
	}
}

// SubmitRequest is the body of POST /v1/scores. Omitting signature selects
// the legacy unauthenticated path.
type SubmitRequest struct {
	Player    string `json:"player"`
	Score     uint64 `json:"score"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Nonce     string `json:"nonce,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// Submission converts the request into a ledger submission.
func (r SubmitRequest) Submission() (model.Submission, error) {
	player, err := model.ParseAddress(r.Player)
	if err != nil {
		return model.Submission{}, err
	}
	sub := model.Submission{Player: player, Score: r.Score}
	if r.Signature == "" {
		return sub, nil
	}
	nonce, err := model.ParseHash(r.Nonce)
	if err != nil {
		return model.Submission{}, err
	}
	sub.Auth = &model.Authorization{
		Player:    player,
		Score:     r.Score,
		Signature: r.Signature,
		Timestamp: r.Timestamp,
		Nonce:     nonce,
	}
	return sub, nil
}

// RankingResponse is the parallel-array shape of leaderboard and page queries.
type RankingResponse struct {
	Players []model.Address `json:"players"`
	Scores  []uint64        `json:"scores"`
}

func (h *LedgerHandler) submitScore(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, model.NewValidationError(model.CodeInvalidScore, "malformed submission body"))
		return
	}
	sub, err := req.Submission()
	if err != nil {
		writeError(c, err)
		return
	}

	receipt, err := h.ledger.Submit(c.Request.Context(), sub)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (h *LedgerHandler) playerCount(c *gin.Context) {
	n, err := h.ranking.PlayerCount(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *LedgerHandler) player(c *gin.Context) {
	addr, err := model.ParseAddress(c.Param("address"))
	if err != nil {
		writeError(c, err)
		return
	}
	rec, err := h.ranking.Player(c.Request.Context(), addr)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"address":   addr,
		"score":     rec.BestScore,
		"hasPlayed": rec.HasPlayed,
	})
}

func (h *LedgerHandler) leaderboard(c *gin.Context) {
	limit, err := queryUint(c, "limit", 10)
	if err != nil {
		writeError(c, err)
		return
	}
	addrs, scores, err := h.ranking.TopScores(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, RankingResponse{Players: addrs, Scores: scores})
}

func (h *LedgerHandler) playersPage(c *gin.Context) {
	offset, err := queryUint(c, "offset", 0)
	if err != nil {
		writeError(c, err)
		return
	}
	limit, err := queryUint(c, "limit", 10)
	if err != nil {
		writeError(c, err)
		return
	}
	addrs, scores, err := h.ranking.PlayersPage(c.Request.Context(), offset, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, RankingResponse{Players: addrs, Scores: scores})
}

func (h *LedgerHandler) catalog(c *gin.Context) {
	cfg := h.ledger.Config()
	c.JSON(http.StatusOK, gin.H{"mode": cfg.SkinMode, "skins": h.ledger.Skins()})
}

func (h *LedgerHandler) hasSkin(c *gin.Context) {
	addr, err := model.ParseAddress(c.Param("address"))
	if err != nil {
		writeError(c, err)
		return
	}
	skinID, err := strconv.ParseUint(c.Param("skin"), 10, 64)
	if err != nil {
		writeError(c, model.NewValidationError(model.CodeUnknownSkin, fmt.Sprintf("invalid skin id %q", c.Param("skin"))))
		return
	}
	owned, err := h.ledger.HasSkin(c.Request.Context(), addr, skinID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr, "skin": skinID, "owned": owned})
}

// GrantRequest is the body of POST /v1/skins/:skin.
type GrantRequest struct {
	Player  string `json:"player"`
	Payment uint64 `json:"payment"`
}

func (h *LedgerHandler) grantSkin(c *gin.Context) {
	skinID, err := strconv.ParseUint(c.Param("skin"), 10, 64)
	if err != nil {
		writeError(c, model.NewValidationError(model.CodeUnknownSkin, fmt.Sprintf("invalid skin id %q", c.Param("skin"))))
		return
	}
	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, model.NewValidationError(model.CodeInvalidAddress, "malformed grant body"))
		return
	}
	player, err := model.ParseAddress(req.Player)
	if err != nil {
		writeError(c, err)
		return
	}

	receipt, err := h.ledger.GrantSkin(c.Request.Context(), model.SkinGrant{
		Player:  player,
		SkinID:  skinID,
		Payment: req.Payment,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (h *LedgerHandler) events(c *gin.Context) {
	after, err := queryUint(c, "after", 0)
	if err != nil {
		writeError(c, err)
		return
	}
	limit, err := queryUint(c, "limit", DefaultEventsLimit)
	if err != nil {
		writeError(c, err)
		return
	}
	if limit == 0 || limit > MaxEventsLimit {
		writeError(c, model.NewValidationError(model.CodeInvalidLimit,
			fmt.Sprintf("limit %d outside [1, %d]", limit, MaxEventsLimit)))
		return
	}

	// seq is an int64; anything past it is past the end of the log.
	events, err := h.store.ReadEvents(c.Request.Context(), int64(min(after, math.MaxInt64)), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *LedgerHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "seq": h.ledger.Seq()})
}

// queryUint reads an unsigned query parameter, falling back to def when absent.
func queryUint(c *gin.Context, name string, def uint64) (uint64, error) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, model.NewValidationError(model.CodeInvalidLimit, fmt.Sprintf("%s must be a non-negative integer, got %q", name, raw))
	}
	return v, nil
}
