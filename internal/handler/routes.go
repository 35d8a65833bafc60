package handler

import (
	"net/http"

	"github.com/msomdec/client-registry/internal/service"
)

// RegisterRoutes sets up all HTTP routes on the given mux. Client routes
// require a bearer token; everything else is public. limiter throttles the
// credential endpoints and may be nil.
func RegisterRoutes(mux *http.ServeMux, auth *service.AuthService, clients *service.ClientService, images *service.ImageStore, maxUpload int64, limiter *service.RateLimiter) {
	authHandler := NewAuthHandler(auth)
	clientHandler := NewClientHandler(clients, maxUpload)
	imageHandler := NewImageHandler(images)

	protect := func(h http.HandlerFunc) http.Handler {
		return RequireAuth(auth, h)
	}

	mux.HandleFunc("GET /health", HandleHealth)
	mux.HandleFunc("GET /images/{key...}", imageHandler.HandleServe)

	mux.Handle("POST /api/users", RateLimit(limiter, http.HandlerFunc(authHandler.HandleRegister)))
	mux.Handle("POST /api/users/login", RateLimit(limiter, http.HandlerFunc(authHandler.HandleLogin)))

	mux.Handle("POST /api/clients", protect(clientHandler.HandleCreate))
	mux.Handle("GET /api/clients/page/{page}", protect(clientHandler.HandleGetPage))
	mux.Handle("GET /api/clients/{claveCliente}", protect(clientHandler.HandleGet))
	mux.Handle("PUT /api/clients/{claveCliente}", protect(clientHandler.HandleUpdate))
	mux.Handle("DELETE /api/clients/{claveCliente}", protect(clientHandler.HandleDelete))

	mux.HandleFunc("/", HandleNotFound)
}
