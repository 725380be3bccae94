package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/cfp-comb/app/database"
	"github.com/lysyi3m/cfp-comb/app/feed"
	"github.com/lysyi3m/cfp-comb/app/tasks"
)

const (
	feedItemLimit     = 100
	defaultRecordPage = 50
	maxRecordPage     = 500
)

func NewHandler(repo database.Repository, runs tasks.RunTrigger, sources []string) *Handler {
	return &Handler{
		repo:      repo,
		generator: feed.NewGenerator(),
		runs:      runs,
		sources:   sources,
	}
}

func (h *Handler) GetFeed(c *gin.Context) {
	name := c.Param("name")
	if name != feed.AnnouncementsName {
		c.Status(http.StatusNotFound)
		return
	}

	records, err := h.repo.List(c.Request.Context(), c.Query("source"), feedItemLimit)
	if err != nil {
		slog.Error("Database error", "operation", "list_records", "feed", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(records)
	if err != nil {
		slog.Error("RSS generation error", "feed", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(records)))
	c.Header("X-Feed-Name", name)
	if len(records) > 0 {
		c.Header("X-Last-Updated", records[0].FetchedAt.Format(time.RFC3339))
	}

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"sources":   h.sources,
	}

	if count, err := h.repo.Count(c.Request.Context()); err == nil {
		health["records"] = count
	} else {
		slog.Error("Database error", "operation", "count_records", "error", err)
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	bySource, err := h.repo.CountBySource(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "count_by_source", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	latest, err := h.repo.LatestFetchedAt(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "latest_fetched_at", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	counts := make(map[string]int, len(bySource))
	total := 0
	for _, sc := range bySource {
		counts[sc.Source] = sc.Count
		total += sc.Count
	}

	stats := map[string]interface{}{
		"total":           total,
		"by_source":       counts,
		"last_fetched_at": latest,
	}
	if h.runs != nil {
		stats["last_run"] = h.runs.LastSummary()
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListRecords(c *gin.Context) {
	limit := defaultRecordPage
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = min(n, maxRecordPage)
	}

	source := c.Query("source")
	records, err := h.repo.List(c.Request.Context(), source, limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_records", "source", source, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	items := make([]recordResponse, 0, len(records))
	for _, stored := range records {
		items = append(items, newRecordResponse(stored))
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"records": items,
		"total":   len(items),
	})
}

func (h *Handler) APITriggerRun(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler is not running"})
		return
	}

	runID, err := h.runs.EnqueueRun()
	if err != nil {
		slog.Error("Error enqueueing run", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue run",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Collection cycle enqueued",
		"task": gin.H{
			"id":   runID,
			"type": tasks.TaskTypeRunCycle,
		},
	})
}
