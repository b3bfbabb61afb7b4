package api

import (
	"image"

	"github.com/Code-r4Life/Object-Detection-YOLO/datastructures"
	log "github.com/sirupsen/logrus"
)

// Job holds the attributes needed to perform unit of work.
type Job struct {
	PredictionRequest datastructures.PredictionRequest
	Image             image.Image
}

// JobHandler performs a job. It is shared by all workers.
type JobHandler func(Job)

// NewWorker creates takes a numeric id and a channel w/ worker pool.
func NewWorker(id int, workerPool chan chan Job, handler JobHandler) Worker {
	return Worker{
		id:         id,
		jobQueue:   make(chan Job),
		workerPool: workerPool,
		quitChan:   make(chan bool),
		handler:    handler,
	}
}

type Worker struct {
	id         int
	jobQueue   chan Job
	workerPool chan chan Job
	quitChan   chan bool
	handler    JobHandler
}

func (w Worker) start() {
	log.Debug("[Worker] Worker ", w.id, " starting")

	go func() {
		for {
			// Add my jobQueue to the worker pool.
			select {
			case w.workerPool <- w.jobQueue:
			case <-w.quitChan:
				log.Debug("[Worker] Worker ", w.id, " stopping")
				return
			}

			select {
			case job := <-w.jobQueue:
				// Dispatcher has added a job to my jobQueue.
				log.WithFields(log.Fields{
					"worker": w.id,
					"uuid":   job.PredictionRequest.Uuid,
				}).Debug("[Worker] Processing job")
				w.handler(job)

			case <-w.quitChan:
				// We have been asked to stop.
				log.Debug("[Worker] Worker ", w.id, " stopping")
				return
			}
		}
	}()
}

func (w Worker) stop() {
	close(w.quitChan)
}

// NewDispatcher creates, and returns a new Dispatcher object.
func NewDispatcher(jobQueue chan Job, maxWorkers int, handler JobHandler) *Dispatcher {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	workerPool := make(chan chan Job, maxWorkers)

	return &Dispatcher{
		jobQueue:   jobQueue,
		maxWorkers: maxWorkers,
		workerPool: workerPool,
		handler:    handler,
		quit:       make(chan struct{}),
	}
}

type Dispatcher struct {
	workerPool chan chan Job
	maxWorkers int
	jobQueue   chan Job
	handler    JobHandler
	workers    []Worker
	quit       chan struct{}
}

func (d *Dispatcher) run() {
	for i := 0; i < d.maxWorkers; i++ {
		worker := NewWorker(i+1, d.workerPool, d.handler)
		worker.start()
		d.workers = append(d.workers, worker)
	}

	go d.dispatch()
}

func (d *Dispatcher) dispatch() {
	for {
		select {
		case job := <-d.jobQueue:
			go func(job Job) {
				select {
				case workerJobQueue := <-d.workerPool:
					select {
					case workerJobQueue <- job:
					case <-d.quit:
					}
				case <-d.quit:
				}
			}(job)
		case <-d.quit:
			return
		}
	}
}

func (d *Dispatcher) stop() {
	close(d.quit)
	for _, w := range d.workers {
		w.stop()
	}
}
