package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Code-r4Life/Object-Detection-YOLO/datastructures"
	"github.com/Code-r4Life/Object-Detection-YOLO/predict"
	"github.com/Code-r4Life/Object-Detection-YOLO/predict/backend"
	"github.com/Code-r4Life/Object-Detection-YOLO/train"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	backendKind := flag.String("backend", backend.TensorFlow, "Model backend (tensorflow or remote)")
	model := flag.String("model", "", "Model location, auto-detected from -runs-dir when empty")
	runsDir := flag.String("runs-dir", filepath.Join("runs", "detect"), "Directory holding the train* folders")
	artifact := flag.String("artifact", "", "Model inside <run>/weights, defaults per backend")
	selectPolicy := flag.String("select", string(predict.SelectLatest), "How to pick a training folder (latest, first, interactive)")
	remoteURL := flag.String("remote-url", "http://localhost:8000", "Detection server URL for the remote backend")
	imagePath := flag.String("image", "", "Single image to predict on, the dataset test split is used when empty")
	dataset := flag.String("dataset", "yolo_params.yaml", "Dataset config naming the test split")
	outputDir := flag.String("output-dir", "predictions2", "Where annotated images and labels are written")
	confidence := flag.Float64("confidence", predict.DefaultConfidence, "Confidence threshold (0.0 to 1.0)")
	validate := flag.Bool("validate", true, "Run yolo detect val on the test split afterwards, failures only warn")
	yoloBinary := flag.String("yolo", "yolo", "ultralytics command line tool used for validation")

	flag.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	rule := strings.Repeat("=", 60)
	fmt.Printf("%s\nYOLO PREDICTION SCRIPT\n%s\n", rule, rule)

	policy, err := predict.ParseSelectPolicy(*selectPolicy)
	if err != nil {
		log.Fatal("[Main] ", err.Error())
	}
	if *artifact == "" {
		*artifact = backend.DefaultArtifact[*backendKind]
	}

	selector := &predict.ModelSelector{
		RunsDir:  *runsDir,
		Artifact: *artifact,
		Policy:   policy,
		In:       os.Stdin,
		Out:      os.Stdout,
	}
	location, err := modelLocation(*backendKind, *model, *remoteURL, selector)
	if err != nil {
		log.Fatal("[Main] ", err.Error())
	}
	fmt.Printf("Using model: %s\n", location)

	predictor, err := backend.Open(context.Background(), backend.Options{Kind: *backendKind, Location: location})
	if err != nil {
		log.Fatal("[Main] Couldn't load model: ", err.Error())
	}
	defer predictor.Close()
	fmt.Println("Model loaded successfully")

	images, err := predict.ResolveImages(*imagePath, *dataset)
	if err != nil {
		log.Fatal("[Main] ", err.Error())
	}
	fmt.Printf("Found %d image(s) to process\n", len(images))

	writer, err := predict.NewWriter(*outputDir)
	if err != nil {
		log.Fatal("[Main] Couldn't create output directories: ", err.Error())
	}

	fmt.Printf("\nRunning predictions (confidence threshold: %v)...\n%s\n", *confidence, rule)
	b := &batch{pipeline: predict.NewPipeline(predictor), writer: writer, confidence: *confidence, out: os.Stdout}
	stats := b.run(context.Background(), images)

	fmt.Printf("%s\nPREDICTION COMPLETE\n%s\n", rule, rule)
	fmt.Printf("Processed %d image(s), %d failed, %d objects detected\n", stats.processed, stats.failed, stats.detections)
	fmt.Printf("Annotated images saved in: %s\n", writer.ImagesDir())
	fmt.Printf("Labels saved in: %s\n", writer.LabelsDir())

	if *validate {
		fmt.Printf("\nRunning model validation on test set...\n%s\n", rule)
		runner := &train.ExecRunner{Binary: *yoloBinary}
		weights, err := validationWeights(*backendKind, location, selector)
		if err == nil {
			err = train.Validate(context.Background(), runner, weights, *dataset)
		}
		if err != nil {
			log.Warn("[Main] Validation failed: ", err.Error())
		} else {
			fmt.Printf("%s\nValidation complete\n", rule)
		}
	}

	if stats.fatal != nil {
		log.Error("[Main] Stopped early: ", stats.fatal.Error())
		os.Exit(1)
	}
	fmt.Printf("\nAll done!\n%s\n\n", rule)
}

// modelLocation is what backend.Open loads. The remote backend serves its
// own weights, so -model (or -remote-url) is taken as the server address
// and no training run is looked up.
func modelLocation(kind, model, remoteURL string, selector *predict.ModelSelector) (string, error) {
	if kind == backend.Remote {
		if model != "" {
			return model, nil
		}
		if remoteURL == "" {
			return "", predict.ConfigError(nil, "the remote backend needs -model or -remote-url")
		}
		return remoteURL, nil
	}
	selector.Path = model
	return selector.Select()
}

// validationWeights finds the .pt weights yolo validates. They sit next to
// the exported tensorflow model; for the remote backend they are looked up
// in the training runs.
func validationWeights(kind, location string, selector *predict.ModelSelector) (string, error) {
	if kind == backend.Remote {
		s := *selector
		s.Path = ""
		s.Artifact = backend.DefaultArtifact[backend.Remote]
		return s.Select()
	}
	return filepath.Join(filepath.Dir(location), "best.pt"), nil
}

type batchStats struct {
	processed  int
	failed     int
	detections int
	// fatal is set when a failure makes further images pointless
	fatal error
}

// batch processes images one after the other.
type batch struct {
	pipeline   *predict.Pipeline
	writer     *predict.Writer
	confidence float64
	out        io.Writer
}

func (b *batch) run(ctx context.Context, images []string) batchStats {
	var stats batchStats
	for _, path := range images {
		n, err := b.one(ctx, path)
		if err != nil {
			stats.failed++
			log.WithField("image", path).Error("[Main] ", err.Error())
			// a labels mismatch or broken model fails every image the same way
			if errors.Is(err, predict.ErrLoad) {
				stats.fatal = err
				break
			}
			continue
		}
		stats.processed++
		stats.detections += n
	}
	return stats
}

func (b *batch) one(ctx context.Context, path string) (int, error) {
	img, err := predict.OpenImage(path)
	if err != nil {
		return 0, err
	}
	res, annotated, err := b.pipeline.Process(ctx, img, b.confidence, datastructures.Pixels)
	if err != nil {
		return 0, err
	}
	if _, _, err := b.writer.Write(path, annotated, res); err != nil {
		return 0, err
	}

	name := filepath.Base(path)
	if len(res.Detections) == 0 {
		fmt.Fprintf(b.out, "  %s: No objects detected\n", name)
		return 0, nil
	}
	fmt.Fprintf(b.out, "  %s: %s\n", name, res.Summary())
	for _, d := range res.Detections {
		fmt.Fprintf(b.out, "    - %s (%.2f%%)\n", d.ClassName, d.Confidence*100)
	}
	return len(res.Detections), nil
}
