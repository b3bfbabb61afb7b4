// Package predicttest provides an in-memory predict.Predictor for tests.
package predicttest

import (
	"context"
	"image"
	"sync/atomic"

	"github.com/Code-r4Life/Object-Detection-YOLO/datastructures"
	"github.com/Code-r4Life/Object-Detection-YOLO/predict"
)

// Predictor returns the same boxes for every image, filtered by the
// requested confidence.
type Predictor struct {
	Boxes      []predict.RawBox
	LabelNames predict.Labels
	ModelInfo  datastructures.ModelInfo
	// Err, when set, is returned by every Predict call.
	Err error

	calls  int64
	closed int32
}

// New returns a Predictor with two classes and no boxes.
func New(boxes ...predict.RawBox) *Predictor {
	return &Predictor{
		Boxes:      boxes,
		LabelNames: predict.Labels{"person", "helmet"},
		ModelInfo:  datastructures.ModelInfo{Build: 1, BasedOn: "predicttest", Backend: "fake"},
	}
}

func (p *Predictor) Predict(ctx context.Context, img image.Image, confidence float64) (*predict.RawResult, error) {
	atomic.AddInt64(&p.calls, 1)
	if p.Err != nil {
		return nil, p.Err
	}
	b := img.Bounds()
	res := &predict.RawResult{Width: b.Dx(), Height: b.Dy()}
	for _, box := range p.Boxes {
		score, err := predict.Scalar(box.Score)
		if err == nil && score < confidence {
			continue
		}
		res.Boxes = append(res.Boxes, box)
	}
	return res, nil
}

func (p *Predictor) Labels() predict.Labels { return p.LabelNames }

func (p *Predictor) Info() datastructures.ModelInfo { return p.ModelInfo }

func (p *Predictor) Close() error {
	atomic.StoreInt32(&p.closed, 1)
	return nil
}

// Calls is the number of Predict invocations so far.
func (p *Predictor) Calls() int64 { return atomic.LoadInt64(&p.calls) }

func (p *Predictor) Closed() bool { return atomic.LoadInt32(&p.closed) == 1 }
