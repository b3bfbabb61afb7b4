// Package tensorflow loads frozen TensorFlow object detection graphs.
//
// A model directory holds:
//
//	graph.pb         frozen GraphDef
//	labels.txt       one class name per line, line index = class id
//	model_info.json  build metadata plus optional operation names
package tensorflow

import (
	"context"
	"image"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/Code-r4Life/Object-Detection-YOLO/datastructures"
	"github.com/Code-r4Life/Object-Detection-YOLO/predict"
	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"
	tf "github.com/tensorflow/tensorflow/tensorflow/go"
)

const (
	GraphFile     = "graph.pb"
	LabelsFile    = "labels.txt"
	ModelInfoFile = "model_info.json"
)

// graphConfig names the graph operations. The defaults match graphs
// exported with the TensorFlow Object Detection API.
type graphConfig struct {
	Input       string `json:"input_operation"`
	Boxes       string `json:"boxes_operation"`
	Scores      string `json:"scores_operation"`
	Classes     string `json:"classes_operation"`
	Count       string `json:"count_operation"`
	LabelOffset int    `json:"label_offset"`
}

func defaultGraphConfig() graphConfig {
	return graphConfig{
		Input:   "image_tensor",
		Boxes:   "detection_boxes",
		Scores:  "detection_scores",
		Classes: "detection_classes",
		Count:   "num_detections",
	}
}

// Predictor runs a frozen detection graph in a TensorFlow session.
// Session.Run is safe for concurrent use.
type Predictor struct {
	labels    predict.Labels
	graph     *tf.Graph
	session   *tf.Session
	modelInfo datastructures.ModelInfo
	config    graphConfig

	input   tf.Output
	outputs []tf.Output
}

// Load reads a model directory. Any missing or invalid piece is a
// predict.ErrLoad.
func Load(basePath string) (*Predictor, error) {
	if info, err := os.Stat(basePath); err != nil || !info.IsDir() {
		return nil, predict.LoadError(err, "model directory %s not found", basePath)
	}

	p := &Predictor{config: defaultGraphConfig()}

	// the operation names live in the same file
	modelInfo, err := predict.LoadModelInfo(filepath.Join(basePath, ModelInfoFile), &p.config)
	if err != nil {
		return nil, err
	}
	modelInfo.Backend = "tensorflow"
	p.modelInfo = modelInfo

	labels, err := predict.LoadLabels(filepath.Join(basePath, LabelsFile))
	if err != nil {
		log.Debug("[Main] Couldn't get labels: ", err.Error())
		return nil, err
	}
	p.labels = labels

	// Load the serialized GraphDef from a file.
	model, err := ioutil.ReadFile(filepath.Join(basePath, GraphFile))
	if err != nil {
		log.Debug("[Main] Couldn't read model: ", err.Error())
		return nil, predict.LoadError(err, "couldn't read graph")
	}

	// Construct an in-memory graph from the serialized form.
	p.graph = tf.NewGraph()
	if err := p.graph.Import(model, ""); err != nil {
		log.Debug("[Main] Couldn't construct graph: ", err.Error())
		return nil, predict.LoadError(err, "not a valid graph")
	}

	if err := p.bindOperations(); err != nil {
		return nil, err
	}

	// Create a session for inference over graph.
	p.session, err = tf.NewSession(p.graph, nil)
	if err != nil {
		log.Debug("[Main] Couldn't start session: ", err.Error())
		return nil, predict.LoadError(err, "couldn't start session")
	}

	log.WithFields(log.Fields{
		"dir":     basePath,
		"classes": len(p.labels),
		"build":   p.modelInfo.Build,
	}).Info("[Main] Model loaded")
	return p, nil
}

func (p *Predictor) bindOperations() error {
	op := func(name string) (tf.Output, error) {
		o := p.graph.Operation(name)
		if o == nil {
			return tf.Output{}, predict.LoadError(nil, "graph has no operation %q", name)
		}
		return o.Output(0), nil
	}

	var err error
	if p.input, err = op(p.config.Input); err != nil {
		return err
	}
	for _, name := range []string{p.config.Boxes, p.config.Scores, p.config.Classes, p.config.Count} {
		out, err := op(name)
		if err != nil {
			return err
		}
		p.outputs = append(p.outputs, out)
	}
	return nil
}

func (p *Predictor) Predict(ctx context.Context, img image.Image, confidence float64) (*predict.RawResult, error) {
	tensor, err := makeTensorFromImage(shrink(img))
	if err != nil {
		log.Debug("[Predicting] Couldn't create tensor from image: ", err.Error())
		return nil, predict.InferenceError(err, "couldn't create tensor")
	}

	output, err := p.session.Run(
		map[tf.Output]*tf.Tensor{p.input: tensor},
		p.outputs,
		nil)
	if err != nil {
		log.Debug("[Predicting] Couldn't run image prediction: ", err.Error())
		return nil, predict.InferenceError(err, "session run failed")
	}

	// The batch size is 1, so every output is indexed with [0].
	boxes, ok1 := output[0].Value().([][][]float32)
	scores, ok2 := output[1].Value().([][]float32)
	classes, ok3 := output[2].Value().([][]float32)
	count, ok4 := output[3].Value().([]float32)
	if !(ok1 && ok2 && ok3 && ok4) || len(boxes) == 0 || len(scores) == 0 || len(classes) == 0 || len(count) == 0 {
		return nil, predict.InferenceError(nil, "unexpected output shapes")
	}

	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	res := &predict.RawResult{Width: b.Dx(), Height: b.Dy()}

	n := int(count[0])
	for i := 0; i < n && i < len(scores[0]); i++ {
		score := scores[0][i]
		if float64(score) < confidence {
			continue
		}
		// ymin, xmin, ymax, xmax as fractions of the image
		box := boxes[0][i]
		res.Boxes = append(res.Boxes, predict.RawBox{
			Class: []float32{classes[0][i] - float32(p.config.LabelOffset)},
			Score: []float32{score},
			XYXY: [4]float64{
				float64(box[1]) * w,
				float64(box[0]) * h,
				float64(box[3]) * w,
				float64(box[2]) * h,
			},
		})
	}
	return res, nil
}

func (p *Predictor) Labels() predict.Labels { return p.labels }

func (p *Predictor) Info() datastructures.ModelInfo { return p.modelInfo }

func (p *Predictor) Close() error {
	if p.session == nil {
		return nil
	}
	return p.session.Close()
}

// maxSide bounds the tensor size. Boxes come back as fractions, so
// shrinking doesn't move them.
const maxSide = 1280

func shrink(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxSide && b.Dy() <= maxSide {
		return img
	}
	return imaging.Fit(img, maxSide, maxSide, imaging.Box)
}

// makeTensorFromImage builds the [1, H, W, 3] uint8 RGB batch the
// detection graphs expect; the graphs resize internally.
func makeTensorFromImage(img image.Image) (*tf.Tensor, error) {
	bounds := img.Bounds()
	H, W := bounds.Dy(), bounds.Dx()

	pixels := make([][][]uint8, H)
	for y := 0; y < H; y++ {
		row := make([][]uint8, W)
		for x := 0; x < W; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			row[x] = []uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}
		}
		pixels[y] = row
	}
	return tf.NewTensor([][][][]uint8{pixels})
}
