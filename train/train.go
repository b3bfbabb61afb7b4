// Package train launches YOLO training and validation runs through the
// ultralytics command line tool.
package train

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Options are the training hyperparameters. The zero value is not useful;
// start from DefaultOptions.
type Options struct {
	Epochs    int
	Mosaic    float64
	Optimizer string
	Momentum  float64
	LR0       float64
	LRF       float64
	SingleCls bool

	Data  string
	Model string
	Batch int
}

func DefaultOptions() Options {
	return Options{
		Epochs:    10,
		Mosaic:    0.4,
		Optimizer: "AdamW",
		Momentum:  0.9,
		LR0:       0.0001,
		LRF:       0.0001,
		SingleCls: false,
		Data:      "yolo_params.yaml",
		Model:     "yolov8s.pt",
		Batch:     4,
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (o Options) Validate() error {
	if o.Epochs < 1 {
		return errors.Errorf("epochs must be positive, got %d", o.Epochs)
	}
	if o.Batch < 1 {
		return errors.Errorf("batch must be positive, got %d", o.Batch)
	}
	if o.Mosaic < 0 || o.Mosaic > 1 {
		return errors.Errorf("mosaic must be within [0, 1], got %v", o.Mosaic)
	}
	if o.Data == "" || o.Model == "" {
		return errors.New("data and model are required")
	}
	return nil
}

// Args is the argument list of `yolo detect train`. single_cls has to stay
// false for multi-class datasets.
func (o Options) Args() []string {
	return []string{
		"detect", "train",
		"model=" + o.Model,
		"data=" + o.Data,
		"epochs=" + strconv.Itoa(o.Epochs),
		"batch=" + strconv.Itoa(o.Batch),
		"single_cls=" + strconv.FormatBool(o.SingleCls),
		"mosaic=" + formatFloat(o.Mosaic),
		"optimizer=" + o.Optimizer,
		"lr0=" + formatFloat(o.LR0),
		"lrf=" + formatFloat(o.LRF),
		"momentum=" + formatFloat(o.Momentum),
	}
}

// ValidateArgs is the argument list of `yolo detect val` on the test split.
func ValidateArgs(model, data string) []string {
	return []string{"detect", "val", "model=" + model, "data=" + data, "split=test"}
}

// Runner executes the training tool.
type Runner interface {
	Run(ctx context.Context, args []string) error
}

// ExecRunner runs Binary as a child process and forwards its output to
// the log line by line.
type ExecRunner struct {
	Binary string
	Dir    string
}

func (r *ExecRunner) Run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Dir = r.Dir
	cmd.Env = os.Environ()

	stdOut, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "couldn't attach stdout")
	}
	stdErr, err := cmd.StderrPipe()
	if err != nil {
		return errors.Wrap(err, "couldn't attach stderr")
	}

	logger := log.WithField("cmd", r.Binary+" "+strings.Join(args, " "))
	logger.Info("[Train] Starting")

	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "couldn't start %s", r.Binary)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go forward(&wg, stdOut, logger.Info)
	go forward(&wg, stdErr, logger.Warn)
	// all output has to be read before Wait closes the pipes
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return errors.Wrapf(err, "%s failed", r.Binary)
	}
	logger.Info("[Train] Finished")
	return nil
}

func forward(wg *sync.WaitGroup, r io.Reader, logf func(args ...interface{})) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logf(scanner.Text())
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		log.Debug("[Train] Couldn't read output: ", err.Error())
	}
}

// Train validates opts and hands them to the runner.
func Train(ctx context.Context, r Runner, opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	return r.Run(ctx, opts.Args())
}

// Validate evaluates model on the test split of the dataset config.
func Validate(ctx context.Context, r Runner, model, data string) error {
	if _, err := os.Stat(data); err != nil {
		return errors.Wrapf(err, "skipping validation, %s not found", data)
	}
	return r.Run(ctx, ValidateArgs(model, data))
}
