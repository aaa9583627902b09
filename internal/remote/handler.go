package remote

import (
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/sheettrack/sheettrack/internal/schema"
	"github.com/sheettrack/sheettrack/internal/store"
)

// Handler serves the REST half of a RemoteStore.
type Handler struct {
	store  store.RemoteStore
	logger *log.Logger
}

// NewHandler creates a REST handler for st.
func NewHandler(st store.RemoteStore, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}
	return &Handler{store: st, logger: logger}
}

// RegisterRoutes mounts the REST routes on router.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// Catalog
	router.GET("/sheets", h.ListSheets)
	router.GET("/sheets/:id/questions", h.ListQuestions)

	// Statuses
	router.GET("/statuses", h.ListStatuses)
	router.GET("/statuses/:user_id/:question_id", h.GetStatus)
	router.POST("/statuses", h.InsertStatus)
	router.PATCH("/statuses", h.UpdateStatus)
	router.PUT("/statuses", h.UpsertStatus)
	router.DELETE("/statuses/:user_id/:question_id", h.DeleteStatus)
}

// ListSheets returns every sheet.
// GET /api/sheets
func (h *Handler) ListSheets(c *gin.Context) {
	sheets, err := h.store.ListSheets(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(sheets))
}

// ListQuestions returns a sheet's questions.
// GET /api/sheets/:id/questions
func (h *Handler) ListQuestions(c *gin.Context) {
	qs, err := h.store.ListQuestions(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(qs))
}

// ListStatuses returns a user's statuses, optionally restricted to the
// repeated question_id parameters.
// GET /api/statuses?user_id=...&question_id=...
func (h *Handler) ListStatuses(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	var (
		recs []schema.StatusRecord
		err  error
	)
	if ids, ok := c.GetQueryArray("question_id"); ok {
		recs, err = h.store.ListStatusesFor(c.Request.Context(), userID, ids)
	} else {
		recs, err = h.store.ListStatuses(c.Request.Context(), userID)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(recs))
}

// GetStatus returns one record.
// GET /api/statuses/:user_id/:question_id
func (h *Handler) GetStatus(c *gin.Context) {
	rec, err := h.store.GetStatus(c.Request.Context(), c.Param("user_id"), c.Param("question_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// InsertStatus creates a record.
// POST /api/statuses
func (h *Handler) InsertStatus(c *gin.Context) {
	rec, ok := bindRecord(c)
	if !ok {
		return
	}
	if err := h.store.InsertStatus(c.Request.Context(), rec); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// UpdateStatus overwrites an existing record.
// PATCH /api/statuses
func (h *Handler) UpdateStatus(c *gin.Context) {
	rec, ok := bindRecord(c)
	if !ok {
		return
	}
	if err := h.store.UpdateStatus(c.Request.Context(), rec); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// UpsertStatus inserts or overwrites a record atomically.
// PUT /api/statuses
func (h *Handler) UpsertStatus(c *gin.Context) {
	up, ok := h.store.(store.Upserter)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "upsert not supported by this store"})
		return
	}
	rec, ok := bindRecord(c)
	if !ok {
		return
	}
	if err := up.UpsertStatus(c.Request.Context(), rec); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// DeleteStatus removes a record. Deleting a missing record succeeds.
// DELETE /api/statuses/:user_id/:question_id
func (h *Handler) DeleteStatus(c *gin.Context) {
	admin, ok := h.store.(store.Admin)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "delete not supported by this store"})
		return
	}
	if err := admin.DeleteStatus(c.Request.Context(), c.Param("user_id"), c.Param("question_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// bindRecord decodes and validates a StatusRecord body, writing a 400 on
// failure.
func bindRecord(c *gin.Context) (*schema.StatusRecord, bool) {
	var rec schema.StatusRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return nil, false
	}
	if err := rec.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return &rec, true
}

// writeError maps store errors to HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, store.ErrClosed):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
