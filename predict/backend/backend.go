// Package backend opens a predict.Predictor by backend name, for the
// binaries.
package backend

import (
	"context"
	"time"

	"github.com/Code-r4Life/Object-Detection-YOLO/predict"
	"github.com/Code-r4Life/Object-Detection-YOLO/predict/remote"
	"github.com/Code-r4Life/Object-Detection-YOLO/predict/tensorflow"
)

const (
	TensorFlow = "tensorflow"
	Remote     = "remote"
)

// DefaultArtifact is what a training run keeps under weights/ for each
// backend. The remote server reads the weights itself, so only the
// location matters there.
var DefaultArtifact = map[string]string{
	TensorFlow: "tensorflow",
	Remote:     "best.pt",
}

type Options struct {
	// Kind is TensorFlow or Remote.
	Kind string
	// Location is the model directory (TensorFlow) or the detection
	// server URL (Remote).
	Location string
	// Timeout bounds remote requests.
	Timeout time.Duration
}

// Open loads the model described by opts.
func Open(ctx context.Context, opts Options) (predict.Predictor, error) {
	if opts.Location == "" {
		return nil, predict.ConfigError(nil, "no model location given")
	}
	switch opts.Kind {
	case TensorFlow, "":
		p, err := tensorflow.Load(opts.Location)
		if err != nil {
			return nil, err
		}
		return p, nil
	case Remote:
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		p, err := remote.Load(ctx, opts.Location, timeout)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, predict.ConfigError(nil, "unknown backend %q", opts.Kind)
}
