package web

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// StartWebServer initializes and starts the JSON API server in a new
// goroutine. It takes an AppController, which is an interface implemented by
// the main application, and shuts down gracefully when ctx is cancelled.
func StartWebServer(ctx context.Context, controller AppController) {
	webCfg := controller.GetConfig().Web
	addr := webCfg.ListenAddr
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      newRouter(controller),
		ReadTimeout:  timeoutOrDefault(webCfg.ReadTimeoutSec, 5*time.Second),
		WriteTimeout: timeoutOrDefault(webCfg.WriteTimeoutSec, 10*time.Second),
		IdleTimeout:  timeoutOrDefault(webCfg.IdleTimeoutSec, 120*time.Second),
	}

	go func() {
		controller.Logger().LogInfo("Starting dashboard API on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			controller.Logger().LogFatal("Web server failed: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		controller.Logger().LogInfo("Shutting down web server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			controller.Logger().LogError("Web server graceful shutdown failed: %v", err)
		}
	}()
}

// newRouter wires the API routes. Everything except the health probe sits
// behind bearer auth.
func newRouter(controller AppController) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/dashboard", dashboardHandler(controller))
	api.HandleFunc("GET /api/entities/{id}/performance", entityPerformanceHandler(controller))
	api.HandleFunc("GET /api/entities/{id}/candles", entityCandlesHandler(controller))
	api.HandleFunc("POST /api/entities/{id}/timeframe", setTimeframeHandler(controller))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", healthHandler(controller))
	mux.Handle("/api/", bearerAuth(controller, api))

	return requestID(controller, mux)
}

// requestID tags every response with a request ID and logs the round trip.
func requestID(controller AppController, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		start := time.Now()
		next.ServeHTTP(w, r)
		controller.Logger().LogDebug("web: %s %s [%s] served in %s", r.Method, r.URL.Path, id, time.Since(start))
	})
}

// bearerAuth guards the data endpoints. An empty configured token disables
// auth; the health endpoint is always open for probes.
func bearerAuth(controller AppController, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := controller.GetConfig().Web.AuthToken
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func timeoutOrDefault(sec int, def time.Duration) time.Duration {
	if sec <= 0 {
		return def
	}
	return time.Duration(sec) * time.Second
}
