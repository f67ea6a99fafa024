package handler

import (
	"encoding/json"
	"net/http"

	"trafficserver/internal/dto"
	"trafficserver/internal/service/capture"
	"trafficserver/internal/service/stream"
)

// Pipeline is the part of service.Manager the HTTP surface depends on.
type Pipeline interface {
	Attach(kind capture.Kind) (*stream.Subscription, error)
	Stop()
	VehicleCount() int
	LatestFrame() []byte
	Status() dto.PipelineStatus
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
