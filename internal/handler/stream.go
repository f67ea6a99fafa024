package handler

import (
	"mime/multipart"
	"net/http"
	"net/textproto"

	"trafficserver/internal/logger"
	"trafficserver/internal/monitor"
	"trafficserver/internal/service/capture"
)

const frameBoundary = "frame"

var jpegPartHeader = textproto.MIMEHeader{"Content-Type": {"image/jpeg"}}

// VideoFeedHandler streams annotated frames as multipart/x-mixed-replace. The requested
// source is only opened when no pipeline is running; otherwise the client joins the
// current run. If the source cannot be opened the response ends without any part.
func VideoFeedHandler(pipeline Pipeline, metrics *monitor.Metrics, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := capture.ParseKind(r.URL.Query().Get("source"))

		mw := multipart.NewWriter(w)
		if err := mw.SetBoundary(frameBoundary); err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+frameBoundary)
		w.Header().Set("Cache-Control", "no-cache")

		sub, err := pipeline.Attach(kind)
		if err != nil {
			logger.Warning("Video feed for %s ended immediately: %v", kind, err)
			w.WriteHeader(http.StatusOK)
			return
		}
		defer sub.Close()

		metrics.StreamOpened()
		defer metrics.StreamClosed()
		logger.Info("📺 Viewer %s attached (source=%s)", sub.ID, kind)

		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)

		for {
			select {
			case <-r.Context().Done():
				logger.Info("Viewer %s disconnected", sub.ID)
				return

			case frame, ok := <-sub.Frames():
				if !ok {
					mw.Close()
					logger.Info("Stream for viewer %s finished", sub.ID)
					return
				}

				part, err := mw.CreatePart(jpegPartHeader)
				if err != nil {
					return
				}
				if _, err := part.Write(frame); err != nil {
					logger.Debug("Viewer %s write failed: %v", sub.ID, err)
					return
				}
				if flusher != nil {
					flusher.Flush()
				}
			}
		}
	}
}
