package predict_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Code-r4Life/Object-Detection-YOLO/predict"
	"github.com/pkg/errors"
)

// makeRuns creates runs/detect/<name>/weights/best.pt, oldest first.
func makeRuns(t *testing.T, names ...string) string {
	t.Helper()
	runs := filepath.Join(t.TempDir(), "runs", "detect")
	base := time.Now().Add(-time.Hour)
	for i, name := range names {
		writeFile(t, filepath.Join(runs, name, "weights", "best.pt"), "weights")
		stamp := base.Add(time.Duration(i) * time.Minute)
		ok(t, os.Chtimes(filepath.Join(runs, name), stamp, stamp))
	}
	return runs
}

func TestSelectLatest(t *testing.T) {
	runs := makeRuns(t, "train3", "train", "train2")
	s := &predict.ModelSelector{RunsDir: runs, Artifact: "best.pt", Policy: predict.SelectLatest}

	path, err := s.Select()
	ok(t, err)
	equals(t, filepath.Join(runs, "train2", "weights", "best.pt"), path)
}

func TestSelectFirst(t *testing.T) {
	runs := makeRuns(t, "train3", "train", "train2")
	s := &predict.ModelSelector{RunsDir: runs, Artifact: "best.pt", Policy: predict.SelectFirst}

	path, err := s.Select()
	ok(t, err)
	equals(t, filepath.Join(runs, "train", "weights", "best.pt"), path)
}

func TestSelectInteractiveRepromptsOnInvalidInput(t *testing.T) {
	runs := makeRuns(t, "train", "train2")
	ok(t, os.MkdirAll(filepath.Join(runs, "predict"), 0755))

	var out bytes.Buffer
	s := &predict.ModelSelector{
		RunsDir:  runs,
		Artifact: "best.pt",
		Policy:   predict.SelectInteractive,
		In:       strings.NewReader("abc\n7\n1\n"),
		Out:      &out,
	}

	path, err := s.Select()
	ok(t, err)
	equals(t, filepath.Join(runs, "train2", "weights", "best.pt"), path)
	equals(t, 2, strings.Count(out.String(), "Invalid choice"))
	assert(t, !strings.Contains(out.String(), "predict"), "non-training folder offered:\n%s", out.String())
}

func TestSelectInteractiveWithSingleRunDoesNotPrompt(t *testing.T) {
	runs := makeRuns(t, "train")
	s := &predict.ModelSelector{RunsDir: runs, Artifact: "best.pt", Policy: predict.SelectInteractive}

	path, err := s.Select()
	ok(t, err)
	equals(t, filepath.Join(runs, "train", "weights", "best.pt"), path)
}

func TestSelectInteractiveEndOfInput(t *testing.T) {
	runs := makeRuns(t, "train", "train2")
	s := &predict.ModelSelector{
		RunsDir: runs, Artifact: "best.pt", Policy: predict.SelectInteractive,
		In: strings.NewReader(""), Out: &bytes.Buffer{},
	}
	_, err := s.Select()
	assert(t, errors.Is(err, predict.ErrConfig), "expected config error, got %v", err)
}

func TestSelectErrors(t *testing.T) {
	s := &predict.ModelSelector{RunsDir: filepath.Join(t.TempDir(), "nothing"), Policy: predict.SelectLatest}
	_, err := s.Select()
	assert(t, errors.Is(err, predict.ErrConfig), "missing runs dir: got %v", err)

	empty := t.TempDir()
	s = &predict.ModelSelector{RunsDir: empty, Policy: predict.SelectLatest}
	_, err = s.Select()
	assert(t, errors.Is(err, predict.ErrConfig), "no training folders: got %v", err)

	runs := makeRuns(t, "train")
	s = &predict.ModelSelector{RunsDir: runs, Artifact: "last.pt", Policy: predict.SelectLatest}
	_, err = s.Select()
	assert(t, errors.Is(err, predict.ErrLoad), "missing weights: got %v", err)
}

func TestSelectExplicit(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "best.pt")
	writeFile(t, model, "weights")

	path, err := (&predict.ModelSelector{Policy: predict.SelectExplicit, Path: model}).Select()
	ok(t, err)
	equals(t, model, path)

	_, err = (&predict.ModelSelector{Policy: predict.SelectExplicit, Path: filepath.Join(dir, "nope.pt")}).Select()
	assert(t, errors.Is(err, predict.ErrLoad), "expected load error, got %v", err)

	_, err = (&predict.ModelSelector{Policy: predict.SelectExplicit}).Select()
	assert(t, errors.Is(err, predict.ErrConfig), "expected config error, got %v", err)
}

func TestParseSelectPolicy(t *testing.T) {
	p, err := predict.ParseSelectPolicy("interactive")
	ok(t, err)
	equals(t, predict.SelectInteractive, p)

	_, err = predict.ParseSelectPolicy("random")
	assert(t, errors.Is(err, predict.ErrConfig), "expected config error, got %v", err)
}
