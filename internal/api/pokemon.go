package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/pokelend/internal/imaging"
	"github.com/erazemk/pokelend/internal/lending"
	"github.com/erazemk/pokelend/internal/model"
	"github.com/erazemk/pokelend/internal/store"
)

// PokemonHandler handles clan and pokemon endpoints.
type PokemonHandler struct {
	DB     *sqlx.DB
	Engine *lending.Engine
}

type createPokemonRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Type     string `json:"type" validate:"max=50"`
	HeldItem string `json:"held_item" validate:"max=100"`
}

func pokemonID(w http.ResponseWriter, r *http.Request) (string, bool) {
	u, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid pokemon id")
		return "", false
	}
	return u.String(), true
}

// ListClans handles GET /api/clans.
func (h *PokemonHandler) ListClans(w http.ResponseWriter, r *http.Request) {
	clans, err := store.ListClans(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list clans", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list clans")
		return
	}
	if clans == nil {
		clans = []model.Clan{}
	}
	jsonResponse(w, http.StatusOK, clans)
}

// ListClanPokemon handles GET /api/clans/{clan}/pokemon.
func (h *PokemonHandler) ListClanPokemon(w http.ResponseWriter, r *http.Request) {
	clan, ok := h.clan(w, r)
	if !ok {
		return
	}

	pokemon, err := store.ListClanPokemon(r.Context(), h.DB, clan.Name)
	if err != nil {
		slog.Error("failed to list clan pokemon", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list pokemon")
		return
	}
	if pokemon == nil {
		pokemon = []model.Pokemon{}
	}
	jsonResponse(w, http.StatusOK, pokemon)
}

// Create handles POST /api/clans/{clan}/pokemon.
func (h *PokemonHandler) Create(w http.ResponseWriter, r *http.Request) {
	clan, ok := h.clan(w, r)
	if !ok {
		return
	}

	var req createPokemonRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validateRequest(req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := store.CreatePokemon(r.Context(), h.DB, clan.ID, req.Name, strings.TrimSpace(req.HeldItem), strings.TrimSpace(req.Type))
	if err != nil {
		slog.Error("failed to create pokemon", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create pokemon")
		return
	}

	slog.Info("pokemon created", "user", actor(r), "pokemon", p.Name, "clan", clan.Name)
	jsonResponse(w, http.StatusCreated, p)
}

// Get handles GET /api/pokemon/{id}.
func (h *PokemonHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pokemonID(w, r)
	if !ok {
		return
	}

	p, err := store.GetPokemon(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get pokemon", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get pokemon")
		return
	}
	if p == nil {
		jsonError(w, http.StatusNotFound, "pokemon not found")
		return
	}
	jsonResponse(w, http.StatusOK, p)
}

// Delete handles DELETE /api/pokemon/{id}.
func (h *PokemonHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pokemonID(w, r)
	if !ok {
		return
	}

	deleted, err := store.DeletePokemon(r.Context(), h.DB, id)
	if errors.Is(err, store.ErrPokemonBorrowed) {
		jsonError(w, http.StatusConflict, "pokemon is currently borrowed")
		return
	}
	if err != nil {
		slog.Error("failed to delete pokemon", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete pokemon")
		return
	}
	if !deleted {
		jsonError(w, http.StatusNotFound, "pokemon not found")
		return
	}

	slog.Info("pokemon deleted", "user", actor(r), "pokemon", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "pokemon deleted"})
}

// Retire handles POST /api/pokemon/{id}/retire.
func (h *PokemonHandler) Retire(w http.ResponseWriter, r *http.Request) {
	p, err := h.Engine.Retire(r.Context(), r.PathValue("id"))
	if err != nil {
		lendingError(w, r, err)
		return
	}
	slog.Info("pokemon retired", "user", actor(r), "pokemon", p.Name)
	jsonResponse(w, http.StatusOK, p)
}

// Reinstate handles POST /api/pokemon/{id}/reinstate.
func (h *PokemonHandler) Reinstate(w http.ResponseWriter, r *http.Request) {
	p, err := h.Engine.Reinstate(r.Context(), r.PathValue("id"))
	if err != nil {
		lendingError(w, r, err)
		return
	}
	slog.Info("pokemon reinstated", "user", actor(r), "pokemon", p.Name)
	jsonResponse(w, http.StatusOK, p)
}

// UploadSprite handles PUT /api/pokemon/{id}/sprite.
func (h *PokemonHandler) UploadSprite(w http.ResponseWriter, r *http.Request) {
	id, ok := pokemonID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<16)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("sprite")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "sprite file required")
		return
	}
	defer file.Close()

	sprite, err := imaging.NormaliseSprite(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := store.SetPokemonSprite(r.Context(), h.DB, id, sprite.Data, sprite.MIME)
	if err != nil {
		slog.Error("failed to save sprite", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save sprite")
		return
	}
	if !updated {
		jsonError(w, http.StatusNotFound, "pokemon not found")
		return
	}

	slog.Info("sprite uploaded", "user", actor(r), "pokemon", id, "width", sprite.Width, "height", sprite.Height)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "sprite uploaded"})
}

// GetSprite handles GET /api/pokemon/{id}/sprite.
func (h *PokemonHandler) GetSprite(w http.ResponseWriter, r *http.Request) {
	id, ok := pokemonID(w, r)
	if !ok {
		return
	}

	data, mime, err := store.GetPokemonSprite(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get sprite", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get sprite")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no sprite")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

func (h *PokemonHandler) clan(w http.ResponseWriter, r *http.Request) (*model.Clan, bool) {
	clan, err := store.GetClanByName(r.Context(), h.DB, r.PathValue("clan"))
	if err != nil {
		slog.Error("failed to get clan", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get clan")
		return nil, false
	}
	if clan == nil {
		jsonError(w, http.StatusNotFound, "clan not found")
		return nil, false
	}
	return clan, true
}
