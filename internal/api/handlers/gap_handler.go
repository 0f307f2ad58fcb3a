package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/gapwatch/internal/service"
	"github.com/gin-gonic/gin"
)

type GapHandler struct {
	service *service.GapService
}

func NewGapHandler(service *service.GapService) *GapHandler {
	return &GapHandler{service: service}
}

// parseDate reads the date from the path or the query string. An empty date selects the
// latest snapshot.
func parseDate(c *gin.Context) (string, bool) {
	date := strings.TrimSpace(c.Param("date"))
	if date == "" {
		date = strings.TrimSpace(c.Query("date"))
	}
	if date == "" {
		return "", true
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD", "details": err.Error()})
		return "", false
	}
	return date, true
}

func respondError(c *gin.Context, message string, err error) {
	if errors.Is(err, service.ErrSnapshotNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": message, "details": err.Error()})
}

func (h *GapHandler) ListSnapshots(c *gin.Context) {
	infos, err := h.service.ListSnapshots(c.Request.Context())
	if err != nil {
		respondError(c, "failed to list snapshots", err)
		return
	}

	dates := make([]string, 0, len(infos))
	for _, info := range infos {
		dates = append(dates, info.Date)
	}
	c.JSON(http.StatusOK, gin.H{
		"dates":     dates,
		"snapshots": infos,
	})
}

func (h *GapHandler) GetLatestSnapshot(c *gin.Context) {
	snap, err := h.service.GetSnapshot(c.Request.Context(), "")
	if err != nil {
		respondError(c, "failed to fetch snapshot", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *GapHandler) GetSnapshot(c *gin.Context) {
	date, ok := parseDate(c)
	if !ok {
		return
	}
	snap, err := h.service.GetSnapshot(c.Request.Context(), date)
	if err != nil {
		respondError(c, "failed to fetch snapshot", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *GapHandler) GetKPIs(c *gin.Context) {
	date, ok := parseDate(c)
	if !ok {
		return
	}
	view, err := h.service.GetKPIs(c.Request.Context(), date)
	if err != nil {
		respondError(c, "failed to compute kpis", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *GapHandler) GetChanges(c *gin.Context) {
	date, ok := parseDate(c)
	if !ok {
		return
	}
	view, err := h.service.GetChanges(c.Request.Context(), date)
	if err != nil {
		respondError(c, "failed to analyze changes", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *GapHandler) GetPlan(c *gin.Context) {
	date, ok := parseDate(c)
	if !ok {
		return
	}
	plan, err := h.service.GetPlan(c.Request.Context(), date)
	if err != nil {
		respondError(c, "failed to generate plan", err)
		return
	}
	c.JSON(http.StatusOK, plan)
}
