package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"Tradecurve/utilities"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func dashboardHandler(controller AppController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, controller.GetDashboardData())
	}
}

func entityPerformanceHandler(controller AppController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityID := r.PathValue("id")
		data, err := controller.GetEntityPerformance(entityID)
		if err != nil {
			if errors.Is(err, ErrUnknownEntity) {
				writeError(w, http.StatusNotFound, "unknown entity: "+entityID)
				return
			}
			controller.Logger().LogError("web: performance lookup for %s: %v", entityID, err)
			writeError(w, http.StatusInternalServerError, "failed to load performance data")
			return
		}
		writeJSON(w, http.StatusOK, data)
	}
}

func entityCandlesHandler(controller AppController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityID := r.PathValue("id")
		candles, err := controller.GetEntityCandles(entityID)
		if err != nil {
			if errors.Is(err, ErrUnknownEntity) {
				writeError(w, http.StatusNotFound, "unknown entity: "+entityID)
				return
			}
			controller.Logger().LogError("web: candle lookup for %s: %v", entityID, err)
			writeError(w, http.StatusInternalServerError, "failed to load candle data")
			return
		}
		writeJSON(w, http.StatusOK, CandleSeries{EntityID: entityID, Candles: candles})
	}
}

func setTimeframeHandler(controller AppController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityID := r.PathValue("id")

		var body struct {
			Timeframe string `json:"timeframe"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if !utilities.IsSupportedTimeframe(body.Timeframe) {
			writeError(w, http.StatusBadRequest, "unsupported timeframe: "+body.Timeframe)
			return
		}

		if err := controller.SetEntityTimeframe(entityID, body.Timeframe); err != nil {
			if errors.Is(err, ErrUnknownEntity) {
				writeError(w, http.StatusNotFound, "unknown entity: "+entityID)
				return
			}
			controller.Logger().LogError("web: timeframe change for %s: %v", entityID, err)
			writeError(w, http.StatusInternalServerError, "failed to change timeframe")
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":    "accepted",
			"entityId":  entityID,
			"timeframe": body.Timeframe,
		})
	}
}

func healthHandler(controller AppController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := controller.Health()
		status := http.StatusOK
		if health.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, health)
	}
}
