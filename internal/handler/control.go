package handler

import (
	"net/http"

	"trafficserver/internal/dto"
	"trafficserver/internal/logger"
)

// StopWebcamHandler stops the pipeline and releases the capture source. It always succeeds.
func StopWebcamHandler(pipeline Pipeline, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pipeline.Stop()
		logger.Info("Stop requested by %s", r.RemoteAddr)

		if err := writeJSON(w, http.StatusOK, dto.StopResult{Status: "Webcam stopped"}); err != nil {
			logger.Error("Error encoding JSON: %v", err)
		}
	}
}

// VehicleCountHandler returns the vehicle count of the most recently processed frame.
func VehicleCountHandler(pipeline Pipeline, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := writeJSON(w, http.StatusOK, dto.VehicleCount{Count: pipeline.VehicleCount()}); err != nil {
			logger.Error("Error encoding JSON: %v", err)
		}
	}
}

func StatusHandler(pipeline Pipeline, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := writeJSON(w, http.StatusOK, pipeline.Status()); err != nil {
			logger.Error("Error encoding JSON: %v", err)
		}
	}
}

// SnapshotHandler serves the latest annotated frame, or 204 if nothing has been produced.
func SnapshotHandler(pipeline Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		frame := pipeline.LatestFrame()
		if frame == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		w.Write(frame)
	}
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
