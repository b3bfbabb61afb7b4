package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/Code-r4Life/Object-Detection-YOLO/train"
	log "github.com/sirupsen/logrus"
)

func main() {
	defaults := train.DefaultOptions()
	opts := defaults

	flag.IntVar(&opts.Epochs, "epochs", defaults.Epochs, "Number of training epochs")
	flag.Float64Var(&opts.Mosaic, "mosaic", defaults.Mosaic, "Mosaic augmentation probability")
	flag.StringVar(&opts.Optimizer, "optimizer", defaults.Optimizer, "Optimizer")
	flag.Float64Var(&opts.Momentum, "momentum", defaults.Momentum, "Momentum")
	flag.Float64Var(&opts.LR0, "lr0", defaults.LR0, "Initial learning rate")
	flag.Float64Var(&opts.LRF, "lrf", defaults.LRF, "Final learning rate fraction")
	flag.BoolVar(&opts.SingleCls, "single_cls", defaults.SingleCls, "Treat all classes as one, must stay false for multi-class datasets")
	flag.StringVar(&opts.Data, "data", defaults.Data, "Dataset config")
	flag.StringVar(&opts.Model, "model", defaults.Model, "Pretrained weights to start from")
	flag.IntVar(&opts.Batch, "batch", defaults.Batch, "Batch size")
	yoloBinary := flag.String("yolo", "yolo", "ultralytics command line tool")
	dir := flag.String("dir", "", "Working directory, runs/ is created below it")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.WithFields(log.Fields{
		"epochs":    opts.Epochs,
		"optimizer": opts.Optimizer,
		"data":      opts.Data,
	}).Info("[Main] Starting training")

	runner := &train.ExecRunner{Binary: *yoloBinary, Dir: *dir}
	if err := train.Train(ctx, runner, opts); err != nil {
		log.Error("[Main] Training failed: ", err.Error())
		os.Exit(1)
	}
}
