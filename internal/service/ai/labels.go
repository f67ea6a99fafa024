package ai

import (
	"fmt"

	"trafficserver/internal/dto"
)

// cocoClasses contains the 80 COCO class names in YOLOv8 output order.
var cocoClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

// vehicleClasses: car, motorcycle, bus, truck.
var vehicleClasses = map[int]bool{
	2: true,
	3: true,
	5: true,
	7: true,
}

// ClassLabel maps a COCO class ID to a human-readable label.
func ClassLabel(classID int) string {
	if classID >= 0 && classID < len(cocoClasses) {
		return cocoClasses[classID]
	}
	return fmt.Sprintf("unknown%d", classID)
}

// IsVehicleClass reports whether classID is counted as a vehicle.
func IsVehicleClass(classID int) bool {
	return vehicleClasses[classID]
}

// CountVehicles returns how many detections belong to a vehicle class.
func CountVehicles(detections []dto.DetectionResult) int {
	count := 0
	for _, det := range detections {
		if IsVehicleClass(det.ClassID) {
			count++
		}
	}
	return count
}
