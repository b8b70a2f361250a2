package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/card-comps/backend/internal/models"
	"github.com/codyseavey/card-comps/backend/internal/services"
)

type AnalysisHandler struct {
	marketService *services.MarketService
}

func NewAnalysisHandler(marketService *services.MarketService) *AnalysisHandler {
	return &AnalysisHandler{
		marketService: marketService,
	}
}

type AnalyzeRequest struct {
	SearchKey  string  `json:"search_key"`
	Query      string  `json:"query"`
	Limit      int     `json:"limit"`
	GroupID    string  `json:"group_id" binding:"required"`
	Grade      string  `json:"grade"`
	WindowDays int     `json:"window_days"`
	PricePaid  float64 `json:"price_paid"`
}

// Analyze returns metrics, prediction and recommendation for one group
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.SearchKey == "" && req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "search_key or query is required"})
		return
	}
	if req.WindowDays < 0 || req.PricePaid < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "window_days and price_paid must not be negative"})
		return
	}

	analysis, err := h.marketService.Analyze(c.Request.Context(), services.AnalyzeRequest{
		SearchKey:  req.SearchKey,
		Query:      req.Query,
		Limit:      req.Limit,
		Grade:      models.ParseGradeFilter(req.Grade),
		GroupID:    req.GroupID,
		WindowDays: req.WindowDays,
		PricePaid:  req.PricePaid,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, analysis)
}
