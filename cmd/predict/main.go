package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Code-r4Life/Object-Detection-YOLO/datastructures"
	"github.com/Code-r4Life/Object-Detection-YOLO/predict"
	"github.com/Code-r4Life/Object-Detection-YOLO/predict/backend"
	log "github.com/sirupsen/logrus"
)

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	backendKind := flag.String("backend", backend.TensorFlow, "Model backend (tensorflow or remote)")
	model := flag.String("model", "runs/detect/train/weights/tensorflow", "Model directory, or detection server URL for the remote backend")
	imagePath := flag.String("image", "", "Image to predict on")
	outputDir := flag.String("output-dir", "predictions", "Where annotated images and labels are written")
	confidence := flag.Float64("confidence", predict.DefaultConfidence, "Confidence threshold (0.0 to 1.0)")

	flag.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	if *imagePath == "" {
		log.Fatal("[Main] No image given, use -image")
	}
	if !predict.ValidConfidence(*confidence) {
		log.Fatal("[Main] Confidence must be between 0 and 1")
	}

	fmt.Printf("Loading model from: %s\n", *model)
	predictor, err := backend.Open(context.Background(), backend.Options{Kind: *backendKind, Location: *model})
	if err != nil {
		log.Fatal("[Main] Couldn't load model: ", err.Error())
	}
	defer predictor.Close()

	img, err := predict.OpenImage(*imagePath)
	if err != nil {
		log.Error("[Main] ", err.Error())
		os.Exit(1)
	}

	writer, err := predict.NewWriter(*outputDir)
	if err != nil {
		log.Error("[Main] Couldn't create output directories: ", err.Error())
		os.Exit(1)
	}

	fmt.Printf("\nPredicting on: %s\n", filepath.Base(*imagePath))
	pipeline := predict.NewPipeline(predictor)
	res, annotated, err := pipeline.Process(context.Background(), img, *confidence, datastructures.Pixels)
	if err != nil {
		log.Error("[Main] Prediction failed: ", err.Error())
		os.Exit(1)
	}

	imageOut, labelOut, err := writer.Write(*imagePath, annotated, res)
	if err != nil {
		log.Error("[Main] Couldn't save results: ", err.Error())
		os.Exit(1)
	}

	rule := strings.Repeat("=", 60)
	fmt.Printf("\n%s\nRESULTS\n%s\n", rule, rule)
	fmt.Printf("%s:\n", res.Summary())
	for i, d := range res.Detections {
		fmt.Printf("  %d. %s (confidence: %.2f%%) box %s\n", i+1, d.ClassName, d.Confidence*100, formatBox(d.BBox))
	}
	fmt.Printf("\nAnnotated image saved: %s\n", imageOut)
	fmt.Printf("Labels saved: %s\n%s\n\n", labelOut, rule)
}

func formatBox(b datastructures.BBox) string {
	return fmt.Sprintf("[%.1f %.1f %.1f %.1f]", b.X, b.Y, b.W, b.H)
}
