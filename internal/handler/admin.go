package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/walidk/tvrelay/internal/pairs"
	"github.com/walidk/tvrelay/internal/store"
)

// AdminHandler exposes the pairs CRUD and recent-signals status queries.
type AdminHandler struct {
	pairs  *pairs.Service
	store  store.Store
	logger *logrus.Logger
}

func NewAdminHandler(pairsService *pairs.Service, st store.Store, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{pairs: pairsService, store: st, logger: logger}
}

// ListPairs handles GET /pairs.
func (h *AdminHandler) ListPairs(c *gin.Context) {
	entries, err := h.pairs.List(c.Request.Context())
	if err != nil {
		h.logger.WithField("error", err).Error("list pairs failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pairs": entries})
}

type addPairRequest struct {
	Symbol  string `json:"symbol" binding:"required"`
	AddedBy string `json:"added_by"`
}

// AddPair handles POST /pairs.
func (h *AdminHandler) AddPair(c *gin.Context) {
	var req addPairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	if req.AddedBy == "" {
		req.AddedBy = "api"
	}

	if err := h.pairs.Add(c.Request.Context(), req.Symbol, req.AddedBy); err != nil {
		h.logger.WithFields(logrus.Fields{"symbol": req.Symbol, "error": err}).Error("add pair failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "symbol": req.Symbol})
}

// RemovePair handles DELETE /pairs/:symbol.
func (h *AdminHandler) RemovePair(c *gin.Context) {
	symbol := c.Param("symbol")

	removed, err := h.pairs.Remove(c.Request.Context(), symbol)
	if err != nil {
		h.logger.WithFields(logrus.Fields{"symbol": symbol, "error": err}).Error("remove pair failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown pair"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "symbol": symbol})
}

// RecentSignals handles GET /signals.
func (h *AdminHandler) RecentSignals(c *gin.Context) {
	signals, err := h.store.RecentSignals(c.Request.Context(), 50)
	if err != nil {
		h.logger.WithField("error", err).Error("recent signals lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": signals, "count": len(signals)})
}
