package datastructures

import (
	"encoding/json"
	"fmt"
)

// Units names the coordinate convention of a bounding box.
type Units string

const (
	Pixels     Units = "pixels"
	Normalized Units = "normalized"
)

// ParseUnits maps user input to a Units value. An empty string yields def.
func ParseUnits(s string, def Units) (Units, error) {
	switch Units(s) {
	case "":
		return def, nil
	case Pixels, Normalized:
		return Units(s), nil
	}
	return "", fmt.Errorf("unknown units %q (expected %q or %q)", s, Pixels, Normalized)
}

// BBox is a center-size box. It travels as a [x, y, w, h] array.
type BBox struct {
	X float64
	Y float64
	W float64
	H float64
}

func (b BBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X, b.Y, b.W, b.H})
}

func (b *BBox) UnmarshalJSON(data []byte) error {
	var v [4]float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	b.X, b.Y, b.W, b.H = v[0], v[1], v[2], v[3]
	return nil
}

// Scale converts a box between conventions for an image of the given size.
func (b BBox) Scale(from, to Units, width, height int) BBox {
	if from == to || width == 0 || height == 0 {
		return b
	}
	fw, fh := float64(width), float64(height)
	if to == Normalized {
		return BBox{X: b.X / fw, Y: b.Y / fh, W: b.W / fw, H: b.H / fh}
	}
	return BBox{X: b.X * fw, Y: b.Y * fh, W: b.W * fw, H: b.H * fh}
}

type Detection struct {
	ClassID    int     `json:"class_id"`
	ClassName  string  `json:"class"`
	Confidence float64 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
	Units      Units   `json:"units"`
}

type ModelInfo struct {
	Build     int32    `json:"build"`
	Created   string   `json:"created"`
	TrainedOn []string `json:"trained_on"`
	BasedOn   string   `json:"based_on"`
	Backend   string   `json:"backend,omitempty"`
}

type PredictionRequest struct {
	Uuid       string  `json:"uuid"`
	Filename   string  `json:"filename"`
	Created    int64   `json:"created"`
	Confidence float64 `json:"confidence"`
	Units      Units   `json:"units"`
}

type PredictResponse struct {
	Detections []Detection `json:"detections"`
	Image      string      `json:"image"`
	Summary    string      `json:"summary"`
}

type PredictionResult struct {
	Uuid      string           `json:"uuid"`
	Result    *PredictResponse `json:"result,omitempty"`
	ModelInfo ModelInfo        `json:"model_info"`
	Error     string           `json:"error,omitempty"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}
