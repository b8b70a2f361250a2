package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/card-comps/backend/internal/models"
	"github.com/codyseavey/card-comps/backend/internal/services"
)

const defaultMaxUploadBytes = 10 << 20

type SearchHandler struct {
	marketService  *services.MarketService
	maxUploadBytes int64
}

func NewSearchHandler(marketService *services.MarketService, maxUploadBytes int64) *SearchHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &SearchHandler{
		marketService:  marketService,
		maxUploadBytes: maxUploadBytes,
	}
}

type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit"`
	Grade string `json:"grade"`
}

// Search runs a text search. Empty and failed scrapes are still 200;
// the result status says what happened.
func (h *SearchHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must not be negative"})
		return
	}

	result, err := h.marketService.Search(c.Request.Context(), req.Query, req.Limit, models.ParseGradeFilter(req.Grade))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SearchByImage runs a reverse image search on a multipart "image" upload.
// Optional "limit" and "grade" form fields match the text search.
func (h *SearchHandler) SearchByImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	file, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds the upload size limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "No image provided",
			"message": "Upload an image file in the \"image\" form field",
		})
		return
	}

	limit := 0
	if s := c.PostForm("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open uploaded file"})
		return
	}
	defer src.Close()

	imageData, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}

	result, err := h.marketService.SearchByImage(c.Request.Context(), imageData, limit, models.ParseGradeFilter(c.PostForm("grade")))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
