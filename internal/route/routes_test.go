package route

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"trafficserver/internal/dto"
	"trafficserver/internal/logger"
	"trafficserver/internal/monitor"
	"trafficserver/internal/service/capture"
	"trafficserver/internal/service/stream"
	"trafficserver/internal/service/websocket"
)

type idlePipeline struct{ stops int }

func (p *idlePipeline) Attach(capture.Kind) (*stream.Subscription, error) { return nil, capture.ErrEndOfStream }
func (p *idlePipeline) Stop()                                             { p.stops++ }
func (p *idlePipeline) VehicleCount() int                                 { return 0 }
func (p *idlePipeline) LatestFrame() []byte                               { return nil }
func (p *idlePipeline) Status() dto.PipelineStatus                        { return dto.PipelineStatus{} }

func newRouter(p *idlePipeline) http.Handler {
	log := logger.NewNop()
	return SetupRoutes(p, websocket.NewHubService(log), monitor.NewMetrics(), log)
}

func TestSetupRoutes_CORSAnyOrigin(t *testing.T) {
	router := newRouter(&idlePipeline{})

	req := httptest.NewRequest(http.MethodGet, "/vehicle_count", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"count":0}`, rec.Body.String())
}

func TestSetupRoutes_Preflight(t *testing.T) {
	router := newRouter(&idlePipeline{})

	req := httptest.NewRequest(http.MethodOptions, "/stop_webcam", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Less(t, rec.Code, 300)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSetupRoutes_StopRequiresPost(t *testing.T) {
	p := &idlePipeline{}
	router := newRouter(p)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stop_webcam", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stop_webcam", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, p.stops)
}

func TestSetupRoutes_Dashboard(t *testing.T) {
	router := newRouter(&idlePipeline{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/video_feed?source=")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetupRoutes_Metrics(t *testing.T) {
	router := newRouter(&idlePipeline{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pipeline_running")
}
