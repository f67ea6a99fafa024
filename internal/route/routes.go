package route

import (
	"embed"
	"net/http"

	"github.com/rs/cors"
	"trafficserver/internal/handler"
	"trafficserver/internal/logger"
	"trafficserver/internal/middleware"
	"trafficserver/internal/monitor"
	"trafficserver/internal/service/websocket"
)

//go:embed static/index.html
var static embed.FS

// dashboardHandler serves the bundled single-page viewer.
func dashboardHandler(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, static, "static/index.html")
}

// SetupRoutes registers the streaming, control and diagnostic endpoints and wraps the
// mux with request logging and a CORS policy that accepts any origin.
func SetupRoutes(pipeline handler.Pipeline, hub *websocket.HubService, metrics *monitor.Metrics, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Stream + control
	mux.HandleFunc("GET /video_feed", handler.VideoFeedHandler(pipeline, metrics, logger))
	mux.HandleFunc("POST /stop_webcam", handler.StopWebcamHandler(pipeline, logger))
	mux.HandleFunc("GET /vehicle_count", handler.VehicleCountHandler(pipeline, logger))

	// Extras
	mux.HandleFunc("GET /snapshot", handler.SnapshotHandler(pipeline))
	mux.HandleFunc("GET /status", handler.StatusHandler(pipeline, logger))
	mux.HandleFunc("GET /ws/vehicle_count", handler.CountWebsocketHandler(pipeline, hub, logger))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", handler.HealthHandler)

	// Log endpoints
	mux.HandleFunc("GET /logs/{level}", handler.ShowLogsHandler(logger))
	mux.HandleFunc("POST /logs/{level}/clear", handler.ClearLogsHandler(logger))

	mux.HandleFunc("GET /{$}", dashboardHandler)

	return cors.AllowAll().Handler(middleware.LoggingMiddleware(logger)(mux))
}
