package ai

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildOutput lays out anchors as [attrs][anchors], matching the transposed YOLOv8 tensor.
func buildOutput(classes int, anchors [][]float32) []float32 {
	attrs := boxAttrs + classes
	data := make([]float32, attrs*len(anchors))
	for i, a := range anchors {
		for row := 0; row < attrs && row < len(a); row++ {
			data[row*len(anchors)+i] = a[row]
		}
	}
	return data
}

func TestDecodeYOLOv8_PicksArgmaxClass(t *testing.T) {
	// cx, cy, w, h, then 8 class scores
	data := buildOutput(8, [][]float32{
		{100, 100, 40, 20, 0.1, 0, 0.9, 0, 0, 0, 0, 0},
		{300, 200, 60, 60, 0, 0, 0, 0, 0, 0, 0, 0.7},
	})

	got := decodeYOLOv8(data, boxAttrs+8, 2, 1, 1, 0.25)
	require.Len(t, got, 2)

	assert.Equal(t, 2, got[0].classID)
	assert.InDelta(t, 0.9, got[0].score, 1e-6)
	assert.Equal(t, image.Rect(80, 90, 120, 110), got[0].box)

	assert.Equal(t, 7, got[1].classID)
	assert.Equal(t, image.Rect(270, 170, 330, 230), got[1].box)
}

func TestDecodeYOLOv8_SkipsBelowThreshold(t *testing.T) {
	data := buildOutput(3, [][]float32{
		{10, 10, 4, 4, 0.1, 0.2, 0.24},
		{10, 10, 4, 4, 0, 0, 0},
	})

	assert.Empty(t, decodeYOLOv8(data, boxAttrs+3, 2, 1, 1, 0.25))
}

func TestDecodeYOLOv8_ScalesToFrame(t *testing.T) {
	data := buildOutput(1, [][]float32{{320, 320, 64, 32, 0.8}})

	// 640x640 network input onto a 1280x320 frame
	got := decodeYOLOv8(data, boxAttrs+1, 1, 2, 0.5, 0.5)
	require.Len(t, got, 1)
	assert.Equal(t, image.Rect(576, 152, 704, 168), got[0].box)
}

func TestDecodeYOLOv8_RejectsMalformedInput(t *testing.T) {
	assert.Nil(t, decodeYOLOv8(nil, 84, 10, 1, 1, 0.25))
	assert.Nil(t, decodeYOLOv8(make([]float32, 8), 4, 2, 1, 1, 0.25))
	assert.Nil(t, decodeYOLOv8(make([]float32, 10), 84, 0, 1, 1, 0.25))
}
