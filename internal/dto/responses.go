package dto

// VehicleCount is the body of GET /vehicle_count and of count pushes over WebSocket.
type VehicleCount struct {
	Count int `json:"count"`
}

// StopResult is the body of POST /stop_webcam.
type StopResult struct {
	Status string `json:"status"`
}

// PipelineStatus describes the frame pipeline at one instant.
type PipelineStatus struct {
	Running     bool   `json:"running"`
	Source      string `json:"source"`
	Count       int    `json:"count"`
	Frames      uint64 `json:"frames"`
	Subscribers int    `json:"subscribers"`
}
