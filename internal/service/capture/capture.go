package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// ErrEndOfStream is returned by Read once the source is exhausted or disconnected.
var ErrEndOfStream = errors.New("end of stream")

// Kind names a configured source.
type Kind string

const (
	Webcam Kind = "webcam"
	Video  Kind = "video"
)

// ParseKind maps a query value to a Kind. Anything other than "webcam" selects the video file.
func ParseKind(s string) Kind {
	if Kind(s) == Webcam {
		return Webcam
	}
	return Video
}

// Selector identifies a concrete device or file to open.
type Selector struct {
	Kind   Kind
	Device int
	Path   string
}

func (s Selector) String() string {
	if s.Kind == Webcam {
		return fmt.Sprintf("webcam:%d", s.Device)
	}
	return "video:" + s.Path
}

// Source yields decoded frames on demand.
type Source interface {
	// Read blocks until the next frame is written into frame.
	Read(frame *gocv.Mat) error
	Close() error
}

// Opener opens a Source for a Selector.
type Opener interface {
	Open(sel Selector) (Source, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(sel Selector) (Source, error)

func (f OpenerFunc) Open(sel Selector) (Source, error) {
	return f(sel)
}

// DeviceOpener opens webcams and video files through OpenCV.
var DeviceOpener Opener = OpenerFunc(Open)

// videoSource reads from an OpenCV VideoCapture.
type videoSource struct {
	vc *gocv.VideoCapture
}

// Open opens the device index or file path named by sel.
func Open(sel Selector) (Source, error) {
	var target interface{} = sel.Path
	if sel.Kind == Webcam {
		target = sel.Device
	}

	vc, err := gocv.OpenVideoCapture(target)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", sel, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("failed to open %s", sel)
	}
	return &videoSource{vc: vc}, nil
}

func (s *videoSource) Read(frame *gocv.Mat) error {
	if ok := s.vc.Read(frame); !ok || frame.Empty() {
		return ErrEndOfStream
	}
	return nil
}

func (s *videoSource) Close() error {
	return s.vc.Close()
}

// Handle owns an open Source and guarantees it is released exactly once.
type Handle struct {
	src  Source
	once sync.Once
	err  error
}

// NewHandle takes ownership of src.
func NewHandle(src Source) *Handle {
	return &Handle{src: src}
}

func (h *Handle) Read(frame *gocv.Mat) error {
	return h.src.Read(frame)
}

// Release closes the underlying source. Safe to call multiple times and concurrently;
// every call returns the result of the first close.
func (h *Handle) Release() error {
	h.once.Do(func() {
		h.err = h.src.Close()
	})
	return h.err
}
