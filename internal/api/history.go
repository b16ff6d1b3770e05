package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/pokelend/internal/lending"
	"github.com/erazemk/pokelend/internal/model"
	"github.com/erazemk/pokelend/internal/store"
)

// HistoryHandler handles loans: listing, reserving and returning.
type HistoryHandler struct {
	DB     *sqlx.DB
	Engine *lending.Engine
}

// Lending semantics are checked by the engine, so these carry no tags.
type reserveRequest struct {
	Pokemon          []string         `json:"pokemon"`
	Password         string           `json:"password"`
	Duration         *int             `json:"duration"`
	Comment          string           `json:"comment"`
	ExpectedVersions map[string]int64 `json:"expected_versions"`
}

type returnRequest struct {
	Password string `json:"password"`
}

type returnManyRequest struct {
	HistoryIDs []int64 `json:"history_ids"`
	Password   string  `json:"password"`
}

// List handles GET /api/history.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := store.ListHistory(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list history", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}

// Active handles GET /api/history/active, grouping open loans by trainer
// and borrow time.
func (h *HistoryHandler) Active(w http.ResponseWriter, r *http.Request) {
	entries, err := store.ListActiveHistory(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list active history", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list active loans")
		return
	}

	groups := store.GroupActive(entries)
	if groups == nil {
		groups = []model.LoanGroup{}
	}
	jsonResponse(w, http.StatusOK, groups)
}

// Reserve handles POST /api/history.
func (h *HistoryHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Engine.Reserve(r.Context(), lending.ReserveRequest{
		PokemonIDs:       req.Pokemon,
		Password:         req.Password,
		DurationHours:    req.Duration,
		Comment:          req.Comment,
		ExpectedVersions: req.ExpectedVersions,
	})
	if err != nil {
		lendingError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, res)
}

// ReturnOne handles PUT /api/history/{id}/return.
func (h *HistoryHandler) ReturnOne(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid history id")
		return
	}

	var req returnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Engine.ReturnOne(r.Context(), id, req.Password)
	if err != nil {
		lendingError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// ReturnMany handles PUT /api/history/return-multiple.
func (h *HistoryHandler) ReturnMany(w http.ResponseWriter, r *http.Request) {
	var req returnManyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Engine.ReturnMany(r.Context(), req.HistoryIDs, req.Password)
	if err != nil {
		lendingError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// Delete handles DELETE /api/history/{id}.
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid history id")
		return
	}

	deleted, err := store.DeleteHistoryEntry(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to delete history entry", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete history entry")
		return
	}
	if !deleted {
		jsonError(w, http.StatusNotFound, "history entry not found")
		return
	}

	slog.Info("history entry deleted", "user", actor(r), "entry", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "history entry deleted"})
}

// DeleteAll handles DELETE /api/history.
func (h *HistoryHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := store.DeleteAllHistory(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to delete history", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete history")
		return
	}

	slog.Info("history cleared", "user", actor(r), "count", n)
	jsonResponse(w, http.StatusOK, map[string]any{"message": "history cleared", "count": n})
}
