package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"trafficserver/internal/dto"
	"trafficserver/internal/logger"
	svcws "trafficserver/internal/service/websocket"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// CountWebsocketHandler registers the connection in the hub so it receives a
// {"count": n} message after every processed frame. The current count is sent first.
func CountWebsocketHandler(pipeline Pipeline, hub *svcws.HubService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		if err := connection.WriteJSON(dto.VehicleCount{Count: pipeline.VehicleCount()}); err != nil {
			connection.Close()
			return
		}

		if !hub.Register(connection) {
			connection.Close()
			return
		}
		defer hub.Unregister(connection)

		for {
			_, _, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Count viewer disconnected normally")
				} else {
					logger.Debug("Count viewer disconnected: %v", err)
				}
				break
			}
		}
	}
}
