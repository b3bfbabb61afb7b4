package predict

import (
	"context"
	"image"

	"github.com/Code-r4Life/Object-Detection-YOLO/datastructures"
)

// DefaultConfidence is the score threshold used when the caller gives none.
const DefaultConfidence = 0.5

// Predictor is a loaded detection model. Implementations are read-only
// after load and must tolerate concurrent Predict calls.
type Predictor interface {
	// Predict runs the model on img and drops boxes scoring below
	// confidence. img is never modified.
	Predict(ctx context.Context, img image.Image, confidence float64) (*RawResult, error)
	Labels() Labels
	Info() datastructures.ModelInfo
	Close() error
}

// RawBox is one box as the model reported it. Class and Score are numeric
// scalars or single-element numeric containers; XYXY is in pixels.
type RawBox struct {
	Class interface{}
	Score interface{}
	XYXY  [4]float64
}

// RawResult is the model output for a single image.
type RawResult struct {
	Width  int
	Height int
	Boxes  []RawBox
}

// DetectionResult is the normalized view of one inference call. Raw is
// kept so callers can get back to the model output.
type DetectionResult struct {
	Detections []datastructures.Detection
	Raw        *RawResult
	Units      datastructures.Units
}

// Summary is the human readable one-liner returned to API clients.
func (r *DetectionResult) Summary() string {
	return summary(len(r.Detections))
}
