package predict

import (
	"context"
	"image"

	"github.com/Code-r4Life/Object-Detection-YOLO/datastructures"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Pipeline chains model, normalizer and annotator for one model handle.
type Pipeline struct {
	predictor Predictor
}

func NewPipeline(p Predictor) *Pipeline {
	return &Pipeline{predictor: p}
}

func (p *Pipeline) Predictor() Predictor { return p.predictor }

// ValidConfidence reports whether c is a usable score threshold.
func ValidConfidence(c float64) bool {
	return c >= 0 && c <= 1
}

// Detect runs inference on img and returns detections in units. Panics in
// the model are reported as InferenceError.
func (p *Pipeline) Detect(ctx context.Context, img image.Image, confidence float64, units datastructures.Units) (res *DetectionResult, err error) {
	if img == nil {
		return nil, InputError(nil, "no image")
	}
	if !ValidConfidence(confidence) {
		return nil, InputError(nil, "confidence %v outside [0, 1]", confidence)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("[Pipeline] Model panicked: ", r)
			res, err = nil, InferenceError(nil, "model panicked: %v", r)
		}
	}()

	raw, err := p.predictor.Predict(ctx, img, confidence)
	if err != nil {
		var perr *Error
		if errors.As(err, &perr) {
			return nil, err
		}
		return nil, InferenceError(err, "prediction failed")
	}
	if raw == nil {
		return nil, InferenceError(nil, "model returned no output")
	}
	raw = FilterScores(raw, confidence)
	if raw.Width == 0 || raw.Height == 0 {
		b := img.Bounds()
		raw.Width, raw.Height = b.Dx(), b.Dy()
	}

	detections, err := Normalize(raw, p.predictor.Labels(), units)
	if err != nil {
		return nil, err
	}
	return &DetectionResult{Detections: detections, Raw: raw, Units: units}, nil
}

// Process runs Detect and renders the annotated copy of img.
func (p *Pipeline) Process(ctx context.Context, img image.Image, confidence float64, units datastructures.Units) (*DetectionResult, *image.RGBA, error) {
	res, err := p.Detect(ctx, img, confidence, units)
	if err != nil {
		return nil, nil, err
	}
	return res, Annotate(img, res), nil
}

// Respond builds the API payload for a processed image.
func Respond(res *DetectionResult, annotated image.Image) (*datastructures.PredictResponse, error) {
	url, err := DataURL(annotated)
	if err != nil {
		return nil, InferenceError(err, "couldn't encode annotated image")
	}
	detections := res.Detections
	if detections == nil {
		detections = []datastructures.Detection{}
	}
	return &datastructures.PredictResponse{
		Detections: detections,
		Image:      url,
		Summary:    res.Summary(),
	}, nil
}
