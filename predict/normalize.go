package predict

import (
	"fmt"
	"math"

	"github.com/Code-r4Life/Object-Detection-YOLO/datastructures"
)

// Scalar unwraps a numeric model output. Models frequently hand back
// single-element tensors instead of plain numbers; the first element is
// used in that case. NaN and infinities are rejected.
func Scalar(v interface{}) (float64, error) {
	f, err := scalar(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, InferenceError(nil, "model output %v is not a finite number", f)
	}
	return f, nil
}

func scalar(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint8:
		return float64(t), nil
	case []float64:
		if len(t) > 0 {
			return t[0], nil
		}
	case []float32:
		if len(t) > 0 {
			return float64(t[0]), nil
		}
	case []int:
		if len(t) > 0 {
			return float64(t[0]), nil
		}
	case []int64:
		if len(t) > 0 {
			return float64(t[0]), nil
		}
	case []interface{}:
		if len(t) > 0 {
			return scalar(t[0])
		}
	default:
		return 0, InferenceError(nil, "unsupported model output %T", v)
	}
	return 0, InferenceError(nil, "empty model output %T", v)
}

// ClassID unwraps a class id and rejects non-integral values.
func ClassID(v interface{}) (int, error) {
	f, err := Scalar(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f < 0 {
		return 0, InferenceError(nil, "class id %v is not a non-negative integer", f)
	}
	return int(f), nil
}

// Normalize turns raw model boxes into Detections expressed in units.
func Normalize(raw *RawResult, labels Labels, units datastructures.Units) ([]datastructures.Detection, error) {
	if raw == nil {
		return nil, InferenceError(nil, "no model output")
	}
	if units != datastructures.Pixels && units != datastructures.Normalized {
		return nil, InputError(nil, "unknown units %q", units)
	}
	if units == datastructures.Normalized && (raw.Width <= 0 || raw.Height <= 0) {
		return nil, InferenceError(nil, "image size %dx%d can't be normalized", raw.Width, raw.Height)
	}

	detections := make([]datastructures.Detection, 0, len(raw.Boxes))
	for _, box := range raw.Boxes {
		id, err := ClassID(box.Class)
		if err != nil {
			return nil, err
		}
		score, err := Scalar(box.Score)
		if err != nil {
			return nil, err
		}
		if score < 0 || score > 1 {
			return nil, InferenceError(nil, "score %v outside [0, 1]", score)
		}
		name, err := labels.Name(id)
		if err != nil {
			return nil, err
		}

		bbox := centerSize(box.XYXY).Scale(datastructures.Pixels, units, raw.Width, raw.Height)
		detections = append(detections, datastructures.Detection{
			ClassID:    id,
			ClassName:  name,
			Confidence: score,
			BBox:       bbox,
			Units:      units,
		})
	}
	return detections, nil
}

func centerSize(xyxy [4]float64) datastructures.BBox {
	w := xyxy[2] - xyxy[0]
	h := xyxy[3] - xyxy[1]
	return datastructures.BBox{X: xyxy[0] + w/2, Y: xyxy[1] + h/2, W: w, H: h}
}

// FilterScores keeps boxes whose score is at least confidence. Boxes with
// unreadable or non-finite scores are kept so Normalize can report them.
func FilterScores(raw *RawResult, confidence float64) *RawResult {
	if raw == nil {
		return nil
	}
	out := &RawResult{Width: raw.Width, Height: raw.Height, Boxes: make([]RawBox, 0, len(raw.Boxes))}
	for _, box := range raw.Boxes {
		score, err := Scalar(box.Score)
		if err == nil && score < confidence {
			continue
		}
		out.Boxes = append(out.Boxes, box)
	}
	return out
}

func summary(n int) string {
	return fmt.Sprintf("Detected %d objects", n)
}
