package api

import (
	"context"
	"image"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Code-r4Life/Object-Detection-YOLO/datastructures"
	"github.com/Code-r4Life/Object-Detection-YOLO/predict"
	"github.com/getsentry/raven-go"
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	// Confidence is used when a request doesn't carry one.
	Confidence float64
	// Units is the default bounding box convention of responses.
	Units datastructures.Units
	// MaxUploadSize caps request bodies, in bytes.
	MaxUploadSize int64

	MaxWorkers         int
	MaxWorkerQueueSize int
}

func DefaultConfig() Config {
	return Config{
		Confidence:         predict.DefaultConfidence,
		Units:              datastructures.Pixels,
		MaxUploadSize:      32 << 20,
		MaxWorkers:         2,
		MaxWorkerQueueSize: 100,
	}
}

// Server answers prediction requests with one shared model handle. It
// starts without a model; SetPredictor moves it into the loaded state.
type Server struct {
	cfg   Config
	store ResultStore

	mu       sync.RWMutex
	pipeline *predict.Pipeline

	jobQueue   chan Job
	dispatcher *Dispatcher
}

func NewServer(cfg Config, store ResultStore) *Server {
	if cfg.Units == "" {
		cfg.Units = datastructures.Pixels
	}
	s := &Server{
		cfg:      cfg,
		store:    store,
		jobQueue: make(chan Job, cfg.MaxWorkerQueueSize),
	}
	s.dispatcher = NewDispatcher(s.jobQueue, cfg.MaxWorkers, s.process)
	return s
}

// SetPredictor installs the model handle. Passing nil unloads it.
func (s *Server) SetPredictor(p predict.Predictor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		s.pipeline = nil
		return
	}
	s.pipeline = predict.NewPipeline(p)
}

func (s *Server) currentPipeline() *predict.Pipeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pipeline
}

// Start launches the workers of the asynchronous flow.
func (s *Server) Start() {
	log.Debug("[Main] Starting Dispatcher...")
	s.dispatcher.run()
}

func (s *Server) Stop() {
	s.dispatcher.stop()
}

func setCorsHeaders(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With, X-PINGOTHER, X-File-Name, Cache-Control")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
	c.Writer.Header().Set("Access-Control-Expose-Headers", "Location")
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		setCorsHeaders(c)
		if c.Request.Method == http.MethodOptions {
			c.JSON(http.StatusOK, struct{}{})
			c.Abort()
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("[Api] Request")
	}
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), cors())
	router.MaxMultipartMemory = s.cfg.MaxUploadSize

	// answered by the cors middleware
	router.OPTIONS("/*path", func(c *gin.Context) {})

	router.GET("/health", s.health)
	router.POST("/predict", s.predict)
	router.POST("/v1/predict", s.enqueue)
	router.GET("/v1/predict/:uuid", s.result)

	return router
}

func (s *Server) health(c *gin.Context) {
	if s.currentPipeline() == nil {
		c.JSON(http.StatusServiceUnavailable, datastructures.HealthResponse{Status: "unhealthy", ModelLoaded: false})
		return
	}
	c.JSON(http.StatusOK, datastructures.HealthResponse{Status: "healthy", ModelLoaded: true})
}

// readUpload validates the multipart request. On failure it has already
// written the error response.
func (s *Server) readUpload(c *gin.Context) (datastructures.PredictionRequest, image.Image, bool) {
	var req datastructures.PredictionRequest

	if s.cfg.MaxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadSize)
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image too large"})
			return req, nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image provided"})
		return req, nil, false
	}
	defer file.Close()

	if header.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No selected file"})
		return req, nil, false
	}

	req.Filename = header.Filename
	req.Created = time.Now().Unix()
	req.Confidence = s.cfg.Confidence
	if v := c.PostForm("confidence"); v != "" {
		conf, err := strconv.ParseFloat(v, 64)
		if err != nil || !predict.ValidConfidence(conf) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "confidence must be a number between 0 and 1"})
			return req, nil, false
		}
		req.Confidence = conf
	}

	units, err := datastructures.ParseUnits(c.Query("units"), s.cfg.Units)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, nil, false
	}
	req.Units = units

	img, err := predict.DecodeImage(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image"})
		return req, nil, false
	}
	return req, img, true
}

func (s *Server) predict(c *gin.Context) {
	pipeline := s.currentPipeline()
	if pipeline == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Model not loaded"})
		return
	}

	req, img, ok := s.readUpload(c)
	if !ok {
		return
	}

	response, err := run(c.Request.Context(), pipeline, req, img)
	if err != nil {
		log.WithField("filename", req.Filename).Error("[Predicting] Prediction error: ", err)
		if errors.Is(err, predict.ErrInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		raven.CaptureError(err, map[string]string{"route": "predict"})
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}

func (s *Server) enqueue(c *gin.Context) {
	if s.currentPipeline() == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Model not loaded"})
		return
	}

	req, img, ok := s.readUpload(c)
	if !ok {
		return
	}

	id, err := uuid.NewV4()
	if err != nil {
		log.Debug("[Predicting] Couldn't accept request: ", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Couldn't accept request - please try again later"})
		return
	}
	req.Uuid = id.String()

	select {
	case s.jobQueue <- Job{PredictionRequest: req, Image: img}:
	default:
		log.Debug("[Predicting] Job queue full, rejecting ", req.Uuid)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Couldn't accept request - please try again later"})
		return
	}

	c.Writer.Header().Set("Location", req.Uuid)
	c.JSON(http.StatusAccepted, gin.H{})
}

func (s *Server) result(c *gin.Context) {
	id := c.Param("uuid")

	predictionResult, err := s.store.Get(id)
	if err != nil {
		log.Debug("[Predicting] Couldn't get status of request: ", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Couldn't get status of request - please try again later"})
		return
	}
	if predictionResult == nil {
		// either the uuid is wrong or processing isn't finished
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	if predictionResult.Error != "" {
		c.JSON(http.StatusOK, gin.H{"error": predictionResult.Error, "model_info": predictionResult.ModelInfo})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"detections": predictionResult.Result.Detections,
		"image":      predictionResult.Result.Image,
		"summary":    predictionResult.Result.Summary,
		"model_info": predictionResult.ModelInfo,
	})
}

// process runs one asynchronous job and stores its outcome.
func (s *Server) process(job Job) {
	req := job.PredictionRequest
	result := datastructures.PredictionResult{Uuid: req.Uuid}

	pipeline := s.currentPipeline()
	if pipeline == nil {
		result.Error = "Model not loaded"
	} else {
		result.ModelInfo = pipeline.Predictor().Info()
		response, err := run(context.Background(), pipeline, req, job.Image)
		if err != nil {
			log.Debug("[Worker] Couldn't predict: ", err.Error())
			raven.CaptureError(err, map[string]string{"route": "v1/predict"})
			result.Error = err.Error()
		} else {
			result.Result = response
		}
	}

	if err := s.store.Put(result); err != nil {
		log.Error("[Worker] Couldn't store result: ", err.Error())
	}
}

func run(ctx context.Context, pipeline *predict.Pipeline, req datastructures.PredictionRequest, img image.Image) (*datastructures.PredictResponse, error) {
	res, annotated, err := pipeline.Process(ctx, img, req.Confidence, req.Units)
	if err != nil {
		return nil, err
	}
	return predict.Respond(res, annotated)
}
