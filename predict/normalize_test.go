package predict_test

import (
	"math"
	"testing"

	"github.com/Code-r4Life/Object-Detection-YOLO/datastructures"
	"github.com/Code-r4Life/Object-Detection-YOLO/predict"
	"github.com/pkg/errors"
)

func TestScalarUnwrapsSingleElementContainers(t *testing.T) {
	for _, v := range []interface{}{
		float64(2), float32(2), int(2), int64(2),
		[]float32{2}, []float64{2}, []int64{2},
		[]interface{}{float64(2)},
		[]interface{}{[]interface{}{float64(2)}},
	} {
		f, err := predict.Scalar(v)
		ok(t, err)
		equals(t, 2.0, f)
	}
}

func TestScalarRejectsEmptyAndNonNumeric(t *testing.T) {
	for _, v := range []interface{}{[]float32{}, []interface{}{}, "2", nil} {
		_, err := predict.Scalar(v)
		assert(t, errors.Is(err, predict.ErrInference), "expected inference error for %#v, got %v", v, err)
	}
}

func TestScalarRejectsNonFinite(t *testing.T) {
	nan := math.NaN()
	for _, v := range []interface{}{nan, float32(nan), []float32{float32(nan)}, math.Inf(1), []interface{}{math.Inf(-1)}} {
		_, err := predict.Scalar(v)
		assert(t, errors.Is(err, predict.ErrInference), "expected inference error for %#v, got %v", v, err)
	}
}

func TestClassIDRejectsFractions(t *testing.T) {
	id, err := predict.ClassID([]float32{3})
	ok(t, err)
	equals(t, 3, id)

	_, err = predict.ClassID(1.5)
	assert(t, errors.Is(err, predict.ErrInference), "expected inference error, got %v", err)

	_, err = predict.ClassID(-1)
	assert(t, errors.Is(err, predict.ErrInference), "expected inference error, got %v", err)
}

func sampleRaw() *predict.RawResult {
	return &predict.RawResult{
		Width:  200,
		Height: 100,
		Boxes: []predict.RawBox{
			{Class: []float32{1}, Score: []float32{0.75}, XYXY: [4]float64{20, 10, 60, 50}},
			{Class: 0, Score: 0.5, XYXY: [4]float64{0, 0, 200, 100}},
		},
	}
}

func TestNormalizePixels(t *testing.T) {
	detections, err := predict.Normalize(sampleRaw(), predict.Labels{"person", "helmet"}, datastructures.Pixels)
	ok(t, err)
	equals(t, 2, len(detections))

	equals(t, datastructures.Detection{
		ClassID:    1,
		ClassName:  "helmet",
		Confidence: 0.75,
		BBox:       datastructures.BBox{X: 40, Y: 30, W: 40, H: 40},
		Units:      datastructures.Pixels,
	}, detections[0])
	equals(t, "person", detections[1].ClassName)
	equals(t, datastructures.BBox{X: 100, Y: 50, W: 200, H: 100}, detections[1].BBox)
}

func TestNormalizeFractions(t *testing.T) {
	detections, err := predict.Normalize(sampleRaw(), predict.Labels{"person", "helmet"}, datastructures.Normalized)
	ok(t, err)

	equals(t, datastructures.BBox{X: 0.2, Y: 0.3, W: 0.2, H: 0.4}, detections[0].BBox)
	equals(t, datastructures.Normalized, detections[0].Units)
	equals(t, datastructures.BBox{X: 0.5, Y: 0.5, W: 1, H: 1}, detections[1].BBox)
}

func TestNormalizeUnknownClassIsLoadError(t *testing.T) {
	_, err := predict.Normalize(sampleRaw(), predict.Labels{"person"}, datastructures.Pixels)
	assert(t, errors.Is(err, predict.ErrLoad), "expected load error, got %v", err)
}

func TestNormalizeNeedsImageSizeForFractions(t *testing.T) {
	raw := sampleRaw()
	raw.Width = 0
	_, err := predict.Normalize(raw, predict.Labels{"person", "helmet"}, datastructures.Normalized)
	assert(t, errors.Is(err, predict.ErrInference), "expected inference error, got %v", err)
}

func TestFilterScoresKeepsThreshold(t *testing.T) {
	filtered := predict.FilterScores(sampleRaw(), 0.5)
	equals(t, 2, len(filtered.Boxes))

	filtered = predict.FilterScores(sampleRaw(), 0.6)
	equals(t, 1, len(filtered.Boxes))
	equals(t, 200, filtered.Width)
}

func TestNonFiniteScoreFailsAtEveryThreshold(t *testing.T) {
	raw := sampleRaw()
	raw.Boxes[0].Score = []float32{float32(math.NaN())}

	for _, conf := range []float64{0, 0.5, 1} {
		filtered := predict.FilterScores(raw, conf)
		_, err := predict.Normalize(filtered, predict.Labels{"person", "helmet"}, datastructures.Pixels)
		assert(t, errors.Is(err, predict.ErrInference), "confidence %v: expected inference error, got %v", conf, err)
	}
}

func TestNormalizeRejectsScoresOutsideUnitRange(t *testing.T) {
	for _, score := range []float64{1.5, -0.1} {
		raw := sampleRaw()
		raw.Boxes[1].Score = score
		_, err := predict.Normalize(raw, predict.Labels{"person", "helmet"}, datastructures.Pixels)
		assert(t, errors.Is(err, predict.ErrInference), "score %v: expected inference error, got %v", score, err)
	}
}

func TestScaleRoundTrip(t *testing.T) {
	b := datastructures.BBox{X: 40, Y: 30, W: 40, H: 40}
	back := b.Scale(datastructures.Pixels, datastructures.Normalized, 200, 100).
		Scale(datastructures.Normalized, datastructures.Pixels, 200, 100)
	assert(t, math.Abs(back.X-b.X) < 1e-9 && math.Abs(back.Y-b.Y) < 1e-9 &&
		math.Abs(back.W-b.W) < 1e-9 && math.Abs(back.H-b.H) < 1e-9, "round trip drifted: %v", back)
}
