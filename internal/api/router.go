// Package api exposes the lending service over HTTP.
package api

import (
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/erazemk/pokelend/internal/auth"
	"github.com/erazemk/pokelend/internal/lending"
	"github.com/erazemk/pokelend/internal/model"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	DB       *sqlx.DB
	Engine   *lending.Engine
	Trainers *lending.Authenticator
	Sessions *auth.Sessions

	// Gatherer backs /metrics; nil serves the default registry.
	Gatherer prometheus.Gatherer
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: d.DB, Sessions: d.Sessions}
	usersHandler := &UsersHandler{DB: d.DB}
	pokemonHandler := &PokemonHandler{DB: d.DB, Engine: d.Engine}
	trainersHandler := &TrainersHandler{DB: d.DB, Trainers: d.Trainers}
	historyHandler := &HistoryHandler{DB: d.DB, Engine: d.Engine}
	favoritesHandler := &FavoritesHandler{DB: d.DB, Engine: d.Engine}

	authMW := AuthMiddleware(d.Sessions, d.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)
	manager := func(h http.HandlerFunc) http.Handler { return authMW(requireManager(h)) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Admin sessions.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/password", admin(usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Clans and pokemon: read (public), write (manager+).
	mux.HandleFunc("GET /api/clans", pokemonHandler.ListClans)
	mux.HandleFunc("GET /api/clans/{clan}/pokemon", pokemonHandler.ListClanPokemon)
	mux.Handle("POST /api/clans/{clan}/pokemon", manager(pokemonHandler.Create))
	mux.HandleFunc("GET /api/pokemon/{id}", pokemonHandler.Get)
	mux.Handle("DELETE /api/pokemon/{id}", manager(pokemonHandler.Delete))
	mux.HandleFunc("GET /api/pokemon/{id}/sprite", pokemonHandler.GetSprite)
	mux.Handle("PUT /api/pokemon/{id}/sprite", manager(pokemonHandler.UploadSprite))
	mux.Handle("POST /api/pokemon/{id}/retire", manager(pokemonHandler.Retire))
	mux.Handle("POST /api/pokemon/{id}/reinstate", manager(pokemonHandler.Reinstate))

	// Trainers.
	mux.HandleFunc("GET /api/trainers", trainersHandler.List)
	mux.Handle("POST /api/trainers", manager(trainersHandler.Create))
	mux.Handle("DELETE /api/trainers/{id}", manager(trainersHandler.Delete))

	// History and lending. Lending routes authenticate the trainer by
	// password in the body.
	mux.HandleFunc("GET /api/history", historyHandler.List)
	mux.HandleFunc("GET /api/history/active", historyHandler.Active)
	mux.HandleFunc("POST /api/history", historyHandler.Reserve)
	mux.HandleFunc("PUT /api/history/{id}/return", historyHandler.ReturnOne)
	mux.HandleFunc("PUT /api/history/return-multiple", historyHandler.ReturnMany)
	mux.Handle("DELETE /api/history/{id}", manager(historyHandler.Delete))
	mux.Handle("DELETE /api/history", admin(historyHandler.DeleteAll))

	// Favorite lists.
	mux.HandleFunc("GET /api/favorites", favoritesHandler.List)
	mux.HandleFunc("GET /api/favorites/{id}", favoritesHandler.Get)
	mux.Handle("POST /api/favorites", manager(favoritesHandler.Create))
	mux.Handle("PUT /api/favorites/{id}", manager(favoritesHandler.Replace))
	mux.Handle("DELETE /api/favorites/{id}", manager(favoritesHandler.Delete))
	mux.HandleFunc("POST /api/favorites/{id}/borrow", favoritesHandler.Borrow)

	return mux
}
