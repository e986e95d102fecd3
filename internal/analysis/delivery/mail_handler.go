package delivery

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"mailgreen-backend/internal/analysis/domain"
	"mailgreen-backend/internal/analysis/usecase"

	"github.com/gin-gonic/gin"
)

// MailHandler handles mail analysis HTTP requests
type MailHandler struct {
	analysisUsecase usecase.AnalysisUsecase
}

// NewMailHandler creates a new MailHandler
func NewMailHandler(analysisUsecase usecase.AnalysisUsecase) *MailHandler {
	return &MailHandler{
		analysisUsecase: analysisUsecase,
	}
}

// MailActionRequest represents the request body for a bulk mail action
type MailActionRequest struct {
	Action  string   `json:"action" binding:"required"`
	IDs     []string `json:"ids"`
	UseLast bool     `json:"use_last"`
	DryRun  bool     `json:"dry_run"`
}

// StartAnalysis triggers a mailbox ingestion run
// POST /api/mail/analyze
func (h *MailHandler) StartAnalysis(c *gin.Context) {
	userID := c.GetString("userID")

	result, err := h.analysisUsecase.StartAnalysis(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if !result.Started {
		// An earlier run is still going; report it instead of stacking.
		c.JSON(http.StatusConflict, result)
		return
	}

	c.JSON(http.StatusAccepted, result)
}

// GetProgress reports the latest run's state
// GET /api/mail/progress
func (h *MailHandler) GetProgress(c *gin.Context) {
	userID := c.GetString("userID")

	view, err := h.analysisUsecase.GetProgress(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, view)
}

// TopSenders returns the user's most frequent senders
// GET /api/mail/senders?limit=10
func (h *MailHandler) TopSenders(c *gin.Context) {
	userID := c.GetString("userID")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	senders, err := h.analysisUsecase.TopSenders(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"senders": senders})
}

// SenderDetails lists one sender's messages, optionally filtered
// GET /api/mail/senders/details?sender=...&start_date=...&end_date=...&is_read=...&older_than_months=...&min_size_bytes=...
func (h *MailHandler) SenderDetails(c *gin.Context) {
	userID := c.GetString("userID")

	sender := c.Query("sender")
	if sender == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sender query parameter required"})
		return
	}

	filter, ok := parseMailFilter(c)
	if !ok {
		return
	}
	filter.Sender = sender

	result, err := h.analysisUsecase.SenderDetails(userID, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// TopKeywords returns the user's largest classified topics
// GET /api/mail/keywords?limit=10
func (h *MailHandler) TopKeywords(c *gin.Context) {
	userID := c.GetString("userID")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	keywords, err := h.analysisUsecase.TopKeywords(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"keywords": keywords})
}

// KeywordDetails lists one topic's messages, optionally filtered
// GET /api/mail/keywords/details?topic_id=...&start_date=...&end_date=...&is_read=...&older_than_months=...&min_size_bytes=...
func (h *MailHandler) KeywordDetails(c *gin.Context) {
	userID := c.GetString("userID")

	topicID, err := strconv.Atoi(c.Query("topic_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic_id query parameter required"})
		return
	}

	filter, ok := parseMailFilter(c)
	if !ok {
		return
	}

	result, err := h.analysisUsecase.KeywordDetails(userID, topicID, filter)
	if err != nil {
		if errors.Is(err, usecase.ErrTopicNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "topic not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// parseMailFilter reads the optional filter query parameters. On a bad
// value it writes the 400 response itself and reports ok=false.
func parseMailFilter(c *gin.Context) (domain.MailFilter, bool) {
	var filter domain.MailFilter

	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date, expected YYYY-MM-DD"})
			return filter, false
		}
		filter.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date, expected YYYY-MM-DD"})
			return filter, false
		}
		filter.EndDate = &t
	}
	if v := c.Query("is_read"); v != "" {
		isRead := v == "true"
		filter.IsRead = &isRead
	}
	if v := c.Query("older_than_months"); v != "" {
		months, err := strconv.Atoi(v)
		if err != nil || months < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid older_than_months"})
			return filter, false
		}
		filter.OlderThanMonths = &months
	}
	if v := c.Query("min_size_bytes"); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil || size < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid min_size_bytes"})
			return filter, false
		}
		filter.MinSizeBytes = &size
	}

	return filter, true
}

// ApplyAction applies a bulk action to selected messages
// POST /api/mail/actions
func (h *MailHandler) ApplyAction(c *gin.Context) {
	userID := c.GetString("userID")

	var req MailActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	action := domain.MailActionType(req.Action)
	if !domain.ValidMailAction(action) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action, expected delete, archive or spam"})
		return
	}

	if len(req.IDs) == 0 && !req.UseLast {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids or use_last required"})
		return
	}

	result, err := h.analysisUsecase.ApplyMailAction(c.Request.Context(), userID, action, req.IDs, req.UseLast, req.DryRun)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListTopics returns the topic catalog
// GET /api/mail/topics
func (h *MailHandler) ListTopics(c *gin.Context) {
	topics, err := h.analysisUsecase.ListTopics()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"topics": topics})
}
