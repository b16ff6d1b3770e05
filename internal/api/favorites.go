package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/pokelend/internal/lending"
	"github.com/erazemk/pokelend/internal/model"
	"github.com/erazemk/pokelend/internal/store"
)

// FavoritesHandler handles shared favorite lists.
type FavoritesHandler struct {
	DB     *sqlx.DB
	Engine *lending.Engine
}

type favoriteListRequest struct {
	Name    string   `json:"name" validate:"required,max=100"`
	Pokemon []string `json:"pokemon" validate:"max=50,dive,uuid4"`
}

type favoriteMembersRequest struct {
	Pokemon []string `json:"pokemon" validate:"max=50,dive,uuid4"`
}

type borrowListRequest struct {
	Password string `json:"password"`
	Comment  string `json:"comment"`
}

func listID(w http.ResponseWriter, r *http.Request) (string, bool) {
	u, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid favorite list id")
		return "", false
	}
	return u.String(), true
}

// List handles GET /api/favorites.
func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	lists, err := store.ListFavoriteLists(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list favorite lists", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list favorite lists")
		return
	}
	if lists == nil {
		lists = []model.FavoriteList{}
	}
	jsonResponse(w, http.StatusOK, lists)
}

// Get handles GET /api/favorites/{id}.
func (h *FavoritesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := listID(w, r)
	if !ok {
		return
	}

	list, err := store.GetFavoriteList(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get favorite list", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get favorite list")
		return
	}
	if list == nil {
		jsonError(w, http.StatusNotFound, "favorite list not found")
		return
	}
	jsonResponse(w, http.StatusOK, list)
}

// Create handles POST /api/favorites.
func (h *FavoritesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req favoriteListRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validateRequest(req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.membersExist(w, r, req.Pokemon) {
		return
	}

	list, err := store.CreateFavoriteList(r.Context(), h.DB, req.Name, req.Pokemon)
	if errors.Is(err, store.ErrDuplicate) {
		jsonError(w, http.StatusConflict, "a favorite list with this name already exists")
		return
	}
	if err != nil {
		slog.Error("failed to create favorite list", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create favorite list")
		return
	}

	slog.Info("favorite list created", "user", actor(r), "list", list.Name, "count", len(list.Pokemon))
	jsonResponse(w, http.StatusCreated, list)
}

// Replace handles PUT /api/favorites/{id}.
func (h *FavoritesHandler) Replace(w http.ResponseWriter, r *http.Request) {
	id, ok := listID(w, r)
	if !ok {
		return
	}

	var req favoriteMembersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateRequest(req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.membersExist(w, r, req.Pokemon) {
		return
	}

	replaced, err := store.ReplaceFavoriteMembers(r.Context(), h.DB, id, req.Pokemon)
	if err != nil {
		slog.Error("failed to update favorite list", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update favorite list")
		return
	}
	if !replaced {
		jsonError(w, http.StatusNotFound, "favorite list not found")
		return
	}

	list, err := store.GetFavoriteList(r.Context(), h.DB, id)
	if err != nil || list == nil {
		jsonError(w, http.StatusInternalServerError, "failed to get favorite list")
		return
	}

	slog.Info("favorite list updated", "user", actor(r), "list", list.Name, "count", len(list.Pokemon))
	jsonResponse(w, http.StatusOK, list)
}

// Delete handles DELETE /api/favorites/{id}.
func (h *FavoritesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := listID(w, r)
	if !ok {
		return
	}

	deleted, err := store.DeleteFavoriteList(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to delete favorite list", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete favorite list")
		return
	}
	if !deleted {
		jsonError(w, http.StatusNotFound, "favorite list not found")
		return
	}

	slog.Info("favorite list deleted", "user", actor(r), "list", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "favorite list deleted"})
}

// Borrow handles POST /api/favorites/{id}/borrow.
func (h *FavoritesHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	var req borrowListRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.Engine.ReserveFromGroup(r.Context(), r.PathValue("id"), req.Password, req.Comment)
	if err != nil {
		lendingError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, res)
}

func (h *FavoritesHandler) membersExist(w http.ResponseWriter, r *http.Request, ids []string) bool {
	found, err := store.PokemonByIDs(r.Context(), h.DB, ids)
	if err != nil {
		slog.Error("failed to check pokemon", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to check pokemon")
		return false
	}

	known := make(map[string]bool, len(found))
	for _, p := range found {
		known[p.ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !known[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		jsonError(w, http.StatusBadRequest, "unknown pokemon: "+strings.Join(missing, ", "))
		return false
	}
	return true
}
