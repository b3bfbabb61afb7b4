package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/Code-r4Life/Object-Detection-YOLO/api"
	"github.com/Code-r4Life/Object-Detection-YOLO/datastructures"
	"github.com/Code-r4Life/Object-Detection-YOLO/predict/backend"
	"github.com/getsentry/raven-go"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	releaseMode := flag.Bool("release", false, "Run in release mode")
	debug := flag.Bool("debug", false, "Enable debug logging")
	listen := flag.String("listen", ":5000", "Address the HTTP server listens on")
	backendKind := flag.String("backend", backend.TensorFlow, "Model backend (tensorflow or remote)")
	model := flag.String("model", "runs/detect/train/weights/tensorflow", "Model directory, or detection server URL for the remote backend")
	confidence := flag.Float64("confidence", 0.5, "Default confidence threshold")
	units := flag.String("units", string(datastructures.Pixels), "Default bounding box units (pixels or normalized)")
	redisAddress := flag.String("redis-address", "", "Address to the Redis server, results are kept in memory when empty")
	redisMaxConnections := flag.Int("redis-max-connections", 50, "Max connections to Redis")
	maxWorkerQueueSize := flag.Int("max-worker-queue-size", 100, "The size of job queue")
	maxWorkers := flag.Int("max-workers", 2, "The number of workers to start")
	maxUploadSize := flag.Int64("max-upload-size", 32<<20, "Max request body size in bytes")
	sentryDsn := flag.String("sentry-dsn", "", "Sentry DSN")

	flag.Parse()

	log.SetLevel(log.InfoLevel)
	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	if *releaseMode {
		log.Info("[Main] Starting gin in release mode!")
		gin.SetMode(gin.ReleaseMode)
	}

	if *sentryDsn != "" {
		if err := raven.SetDSN(*sentryDsn); err != nil {
			log.Fatal("[Main] Couldn't set sentry DSN: ", err.Error())
		}
	}

	defaultUnits, err := datastructures.ParseUnits(*units, datastructures.Pixels)
	if err != nil {
		log.Fatal("[Main] ", err.Error())
	}

	var store api.ResultStore
	if *redisAddress != "" {
		redisStore := api.NewRedisStore(api.NewRedisPool(*redisAddress, *redisMaxConnections), api.ResultTTL)
		if err := redisStore.Ping(); err != nil {
			log.Fatal("[Main] Couldn't connect to redis: ", err.Error())
		}
		store = redisStore
	} else {
		memoryStore, err := api.NewMemoryStore(*maxWorkerQueueSize*10, api.ResultTTL)
		if err != nil {
			log.Fatal("[Main] Couldn't create result store: ", err.Error())
		}
		store = memoryStore
	}

	cfg := api.DefaultConfig()
	cfg.Confidence = *confidence
	cfg.Units = defaultUnits
	cfg.MaxUploadSize = *maxUploadSize
	cfg.MaxWorkers = *maxWorkers
	cfg.MaxWorkerQueueSize = *maxWorkerQueueSize

	server := api.NewServer(cfg, store)

	// a missing model leaves the server up, /health reports it
	predictor, err := backend.Open(context.Background(), backend.Options{Kind: *backendKind, Location: *model})
	if err != nil {
		log.Error("[Main] Couldn't load model: ", err.Error())
	} else {
		server.SetPredictor(predictor)
	}

	server.Start()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("[Main] Shutting down")
		server.Stop()
		store.Close()
		if predictor != nil {
			predictor.Close()
		}
		raven.Wait()
		os.Exit(0)
	}()

	log.WithField("address", *listen).Info("[Main] Starting API")
	if err := server.Router().Run(*listen); err != nil {
		log.Fatal("[Main] Server stopped: ", err.Error())
	}
}
