package api

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/profilezine/zinepress/app/apify"
	"github.com/profilezine/zinepress/app/database"
	"github.com/profilezine/zinepress/app/presets"
	"github.com/profilezine/zinepress/app/runstore"
)

func NewHandler(processor RunProcessor, actor ActorStarter, store *runstore.Store,
	presetCache *presets.Cache, runRepo database.RunRepository,
	actorID string, publicBaseURL string) *Handler {
	return &Handler{
		processor:     processor,
		actor:         actor,
		store:         store,
		presetCache:   presetCache,
		runRepo:       runRepo,
		actorID:       actorID,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

type webhookPayload struct {
	EventType string `json:"eventType"`
	RunID     string `json:"runId"`
	Resource  struct {
		ID               string `json:"id"`
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"resource"`
}

// PostWebhook accepts the platform's run-finished notification. The
// run ID may arrive in the resource payload, a top-level field, or the
// X-Apify-Run-Id header. Records are fetched and persisted before the
// reply, so resolve and fetch failures surface to the caller; only the
// media and build stages continue in the background.
func (h *Handler) PostWebhook(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		slog.Debug("Webhook body not decodable, falling back to headers", "error", err)
	}

	runID := payload.Resource.ID
	if runID == "" {
		runID = payload.RunID
	}
	if runID == "" {
		runID = c.GetHeader("X-Apify-Run-Id")
	}

	if err := runstore.ValidateRunID(runID); err != nil {
		slog.Error("Webhook rejected", "run", runID, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid run ID"})
		return
	}

	datasetID := payload.Resource.DefaultDatasetID

	if err := h.processor.Process(c.Request.Context(), runID, datasetID); err != nil {
		slog.Error("Run ingestion failed", "run", runID, "dataset", datasetID, "error", err)

		var apiErr *apify.APIError
		if errors.As(err, &apiErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to resolve run or dataset"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Run ingestion failed"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status": "processing",
		"runId":  runID,
	})
}

type startRunRequest struct {
	ProfileURL string `json:"profileUrl"`
	Preset     string `json:"preset"`
}

// StartRun starts an actor run for a profile URL and registers a
// webhook pointing back at this service.
func (h *Handler) StartRun(c *gin.Context) {
	var req startRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.ProfileURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing profileUrl"})
		return
	}
	if req.Preset == "" {
		req.Preset = "default"
	}

	preset, err := h.presetCache.GetPreset(req.Preset)
	if err != nil {
		slog.Error("Preset not found", "preset", req.Preset, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Preset not found"})
		return
	}

	var webhooks []apify.Webhook
	if h.publicBaseURL != "" {
		webhooks = append(webhooks, apify.Webhook{
			EventTypes: []string{"ACTOR.RUN.SUCCEEDED"},
			RequestURL: h.publicBaseURL + "/webhooks/apify",
		})
	}

	run, err := h.actor.StartActor(c.Request.Context(), h.actorID, preset.RunInput(req.ProfileURL), webhooks)
	if err != nil {
		slog.Error("Failed to start actor run", "actor", h.actorID, "profile_url", req.ProfileURL, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to start scrape run"})
		return
	}

	if err := h.runRepo.CreateScrapeRequest(database.ScrapeRequest{
		RunID:      run.ID,
		ProfileURL: req.ProfileURL,
		Preset:     preset.Name,
	}); err != nil {
		slog.Error("Failed to record scrape request", "run", run.ID, "error", err)
	}

	c.JSON(http.StatusCreated, gin.H{
		"runId":   run.ID,
		"actorId": run.ActorID,
		"status":  run.Status,
		"preset":  preset.Name,
	})
}

// ListRuns lists recorded scrape requests, newest first.
func (h *Handler) ListRuns(c *gin.Context) {
	requests, err := h.runRepo.ListScrapeRequests(100)
	if err != nil {
		slog.Error("Database error", "operation", "list_scrape_requests", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	runs := make([]map[string]interface{}, 0, len(requests))
	for _, request := range requests {
		runs = append(runs, map[string]interface{}{
			"runId":      request.RunID,
			"profileUrl": request.ProfileURL,
			"preset":     request.Preset,
			"createdAt":  request.CreatedAt,
			"status":     "/runs/" + request.RunID + "/status",
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"total": len(runs),
	})
}

// GetRunStatus reports per-stage progress derived from the run's files
// on disk, plus links to whatever is already available.
func (h *Handler) GetRunStatus(c *gin.Context) {
	runID := c.Param("id")

	status, err := h.store.Status(runID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID"})
		return
	}

	mediaFiles, err := h.store.MediaFiles(runID)
	if err != nil {
		slog.Error("Failed to list media files", "run", runID, "error", err)
	}

	links := map[string]string{}
	if status.RecordsPersisted {
		links["records"] = "/runs/" + runID + "/files/records.json"
	}
	if status.ArtifactPresent {
		links["book"] = "/runs/" + runID + "/book"
	}

	response := gin.H{
		"runId":             status.RunID,
		"records_persisted": status.RecordsPersisted,
		"media_present":     status.MediaPresent,
		"artifact_present":  status.ArtifactPresent,
		"media_files":       len(mediaFiles),
		"links":             links,
	}

	if request, err := h.runRepo.GetScrapeRequestByRunID(runID); err == nil && request != nil {
		response["profileUrl"] = request.ProfileURL
		response["preset"] = request.Preset
		response["requestedAt"] = request.CreatedAt
	}

	c.JSON(http.StatusOK, response)
}

// run files that may be downloaded by name
var downloadableFiles = map[string]bool{
	"records.json": true,
	"book.html":    true,
}

// GetRunFile serves one of the run's top-level files as an attachment.
func (h *Handler) GetRunFile(c *gin.Context) {
	runID := c.Param("id")
	name := c.Param("name")

	if err := runstore.ValidateRunID(runID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID"})
		return
	}
	if !downloadableFiles[name] {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown file"})
		return
	}

	var path string
	switch name {
	case "records.json":
		path = h.store.RecordsPath(runID)
	case "book.html":
		path = h.store.ArtifactPath(runID)
	}

	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not available yet"})
		return
	}

	c.FileAttachment(path, name)
}

// GetBook serves the built book inline. Relative media references in
// the page resolve to the media endpoint below.
func (h *Handler) GetBook(c *gin.Context) {
	runID := c.Param("id")

	if err := runstore.ValidateRunID(runID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID"})
		return
	}

	path := h.store.ArtifactPath(runID)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not built yet"})
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.File(path)
}

// GetMediaFile serves one downloaded media asset.
func (h *Handler) GetMediaFile(c *gin.Context) {
	runID := c.Param("id")
	name := c.Param("name")

	if err := runstore.ValidateRunID(runID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID"})
		return
	}
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file name"})
		return
	}

	path := filepath.Join(h.store.MediaDir(runID), name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Media file not found"})
		return
	}

	c.File(path)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.runRepo.GetScrapeRequestCount(); err == nil {
		health["scrape_requests"] = count
	}

	presetNames := make([]string, 0, h.presetCache.GetPresetCount())
	for name := range h.presetCache.GetPresets() {
		presetNames = append(presetNames, name)
	}
	sort.Strings(presetNames)
	health["presets"] = presetNames
	health["loaded_presets"] = len(presetNames)

	c.JSON(http.StatusOK, health)
}
