package ai

import (
	"image"
)

// boxAttrs is the number of leading rows in a YOLOv8 output holding cx, cy, w, h.
const boxAttrs = 4

type candidate struct {
	box     image.Rectangle
	score   float32
	classID int
}

// decodeYOLOv8 parses a YOLOv8 output laid out as [attrs][anchors] (the batch dimension
// already stripped). Rows 0-3 hold the box centre and size in network input pixels,
// the remaining rows hold one score per class. Boxes are scaled by scaleX/scaleY into
// frame pixels. Candidates scoring below threshold are skipped.
func decodeYOLOv8(data []float32, attrs, anchors int, scaleX, scaleY, threshold float32) []candidate {
	if attrs <= boxAttrs || anchors <= 0 || len(data) < attrs*anchors {
		return nil
	}

	var out []candidate
	for i := 0; i < anchors; i++ {
		maxScore := float32(0)
		maxClassID := -1

		for c := boxAttrs; c < attrs; c++ {
			score := data[c*anchors+i]
			if score > maxScore {
				maxScore = score
				maxClassID = c - boxAttrs
			}
		}

		if maxClassID < 0 || maxScore < threshold {
			continue
		}

		cx := data[0*anchors+i]
		cy := data[1*anchors+i]
		w := data[2*anchors+i]
		h := data[3*anchors+i]

		x1 := int((cx - w/2) * scaleX)
		y1 := int((cy - h/2) * scaleY)
		x2 := int((cx + w/2) * scaleX)
		y2 := int((cy + h/2) * scaleY)

		out = append(out, candidate{
			box:     image.Rect(x1, y1, x2, y2),
			score:   maxScore,
			classID: maxClassID,
		})
	}
	return out
}
