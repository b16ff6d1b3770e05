package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/pokelend/internal/lending"
	"github.com/erazemk/pokelend/internal/store"
)

// TrainersHandler handles trainer registration.
type TrainersHandler struct {
	DB       *sqlx.DB
	Trainers *lending.Authenticator
}

type createTrainerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=4"`
}

type trainerSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// List handles GET /api/trainers. Only ids and names are public.
func (h *TrainersHandler) List(w http.ResponseWriter, r *http.Request) {
	trainers, err := store.ListTrainers(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list trainers", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list trainers")
		return
	}

	out := make([]trainerSummary, 0, len(trainers))
	for _, t := range trainers {
		out = append(out, trainerSummary{ID: t.ID, Name: t.Name})
	}
	jsonResponse(w, http.StatusOK, out)
}

// Create handles POST /api/trainers.
func (h *TrainersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTrainerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateRequest(req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.Trainers.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		lendingError(w, r, err)
		return
	}

	slog.Info("trainer created", "user", actor(r), "trainer", t.ID)
	jsonResponse(w, http.StatusCreated, t)
}

// Delete handles DELETE /api/trainers/{id}.
func (h *TrainersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid trainer id")
		return
	}

	deleted, err := store.DeleteTrainer(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to delete trainer", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete trainer")
		return
	}
	if !deleted {
		jsonError(w, http.StatusNotFound, "trainer not found")
		return
	}

	slog.Info("trainer deleted", "user", actor(r), "trainer", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "trainer deleted"})
}
