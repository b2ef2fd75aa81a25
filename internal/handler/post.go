package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dukerupert/magiclink/internal/auth"
	"github.com/dukerupert/magiclink/internal/metrics"
	"github.com/dukerupert/magiclink/internal/model"
)

type ReadRecorder interface {
	Record(ctx context.Context, slug, userID string) (*model.PostRead, error)
}

type PostHandler struct {
	reads   ReadRecorder
	metrics metrics.Recorder
	logger  *slog.Logger
}

func NewPostHandler(reads ReadRecorder, rec metrics.Recorder, logger *slog.Logger) *PostHandler {
	return &PostHandler{reads: reads, metrics: rec, logger: logger}
}

// MarkRead records that the authenticated user read a post. Repeat reads
// inside the dedup window answer 200 with counted=false.
func (h *PostHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	if slug == "" {
		writeError(w, http.StatusBadRequest, "Post slug is required")
		return
	}

	pr, err := h.reads.Record(r.Context(), slug, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("record post read", "slug", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to record read")
		return
	}
	h.metrics.PostRead(pr != nil)

	if pr == nil {
		writeJSON(w, http.StatusOK, map[string]any{"counted": false})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": pr.ID, "counted": true})
}

type ReadCounter interface {
	CountBySlug(ctx context.Context, slug string) (int64, error)
}

// ReadCount reports how many counted reads a post has.
func (h *PostHandler) ReadCount(counter ReadCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		n, err := counter.CountBySlug(r.Context(), slug)
		if err != nil {
			h.logger.Error("count post reads", "slug", slug, "error", err)
			writeError(w, http.StatusInternalServerError, "Unable to count reads")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"slug": slug, "reads": n})
	}
}
