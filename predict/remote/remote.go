// Package remote talks to a detection server that keeps the model out of
// process, e.g. a small ultralytics wrapper next to the weights.
//
//	GET  /model   -> {"names": [...], "info": {...}}
//	POST /detect  multipart "image" + "conf"
//	              -> {"width": w, "height": h, "boxes": [{"cls", "conf", "xyxy"}]}
//
// cls and conf may be numbers or single-element arrays (tensor dumps).
package remote

import (
	"bytes"
	"context"
	"image"
	"net/http"
	"strconv"
	"time"

	"github.com/Code-r4Life/Object-Detection-YOLO/datastructures"
	"github.com/Code-r4Life/Object-Detection-YOLO/predict"
	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

type modelResponse struct {
	Names []string                 `json:"names"`
	Info  datastructures.ModelInfo `json:"info"`
}

type boxResponse struct {
	Class interface{} `json:"cls"`
	Score interface{} `json:"conf"`
	XYXY  [4]float64  `json:"xyxy"`
}

type detectResponse struct {
	Width  int           `json:"width"`
	Height int           `json:"height"`
	Boxes  []boxResponse `json:"boxes"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Predictor forwards inference to a detection server.
type Predictor struct {
	client    *resty.Client
	labels    predict.Labels
	modelInfo datastructures.ModelInfo
}

// Load fetches the class names and model metadata from baseURL. An
// unreachable server or an invalid answer is a predict.ErrLoad.
func Load(ctx context.Context, baseURL string, timeout time.Duration) (*Predictor, error) {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	var model modelResponse
	resp, err := client.R().
		SetContext(ctx).
		SetResult(&model).
		Get("/model")
	if err != nil {
		return nil, predict.LoadError(err, "detection server %s unreachable", baseURL)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, predict.LoadError(nil, "detection server %s answered %d", baseURL, resp.StatusCode())
	}
	if len(model.Names) == 0 {
		return nil, predict.LoadError(nil, "detection server %s reported no class names", baseURL)
	}

	model.Info.Backend = "remote"
	log.WithFields(log.Fields{
		"url":     baseURL,
		"classes": len(model.Names),
	}).Info("[Main] Remote model loaded")

	return &Predictor{
		client:    client,
		labels:    predict.Labels(model.Names),
		modelInfo: model.Info,
	}, nil
}

func (p *Predictor) Predict(ctx context.Context, img image.Image, confidence float64) (*predict.RawResult, error) {
	data, err := predict.EncodeJPEG(img)
	if err != nil {
		return nil, predict.InferenceError(err, "couldn't encode image")
	}

	var out detectResponse
	var apiErr errorResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetFileReader("image", "image.jpg", bytes.NewReader(data)).
		SetFormData(map[string]string{"conf": strconv.FormatFloat(confidence, 'f', -1, 64)}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/detect")
	if err != nil {
		log.Debug("[Predicting] Couldn't reach detection server: ", err.Error())
		return nil, predict.InferenceError(err, "detection server unreachable")
	}
	if resp.StatusCode() != http.StatusOK {
		msg := apiErr.Error
		if msg == "" {
			msg = resp.Status()
		}
		return nil, predict.InferenceError(nil, "detection server failed: %s", msg)
	}

	res := &predict.RawResult{Width: out.Width, Height: out.Height, Boxes: make([]predict.RawBox, 0, len(out.Boxes))}
	for _, b := range out.Boxes {
		res.Boxes = append(res.Boxes, predict.RawBox{Class: b.Class, Score: b.Score, XYXY: b.XYXY})
	}
	return res, nil
}

func (p *Predictor) Labels() predict.Labels { return p.labels }

func (p *Predictor) Info() datastructures.ModelInfo { return p.modelInfo }

func (p *Predictor) Close() error { return nil }
