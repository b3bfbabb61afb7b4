package predict_test

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/Code-r4Life/Object-Detection-YOLO/predict"
	"github.com/pkg/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	ok(t, os.MkdirAll(filepath.Dir(path), 0755))
	ok(t, os.WriteFile(path, []byte(content), 0644))
}

func TestResolveExplicitPath(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "one.png")
	writeFile(t, img, "not decoded here")

	images, err := predict.ResolveImages(img, "")
	ok(t, err)
	equals(t, []string{img}, images)

	_, err = predict.ResolveImages(filepath.Join(dir, "missing.png"), "")
	assert(t, errors.Is(err, predict.ErrInput), "expected input error, got %v", err)
}

func TestResolveFromDatasetConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "yolo_params.yaml")
	writeFile(t, cfg, "train: data/train\nval: data/val\ntest: data/test\nnc: 2\nnames: [person, helmet]\n")
	for _, name := range []string{"a.PNG", "b.jpg", "c.JPEG", "notes.txt", "d.gif"} {
		writeFile(t, filepath.Join(dir, "data", "test", "images", name), "x")
	}
	ok(t, os.MkdirAll(filepath.Join(dir, "data", "test", "images", "nested.png"), 0755))

	images, err := predict.ResolveImages("", cfg)
	ok(t, err)
	sort.Strings(images)

	base := filepath.Join(dir, "data", "test", "images")
	equals(t, []string{
		filepath.Join(base, "a.PNG"),
		filepath.Join(base, "b.jpg"),
		filepath.Join(base, "c.JPEG"),
	}, images)
}

func TestResolveConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := predict.ResolveImages("", filepath.Join(dir, "missing.yaml"))
	assert(t, errors.Is(err, predict.ErrConfig), "missing config: got %v", err)

	noTest := filepath.Join(dir, "no_test.yaml")
	writeFile(t, noTest, "train: data/train\n")
	_, err = predict.ResolveImages("", noTest)
	assert(t, errors.Is(err, predict.ErrConfig), "missing test field: got %v", err)

	broken := filepath.Join(dir, "broken.yaml")
	writeFile(t, broken, "test: [unclosed\n")
	_, err = predict.ResolveImages("", broken)
	assert(t, errors.Is(err, predict.ErrConfig), "broken yaml: got %v", err)

	noDir := filepath.Join(dir, "no_dir.yaml")
	writeFile(t, noDir, "test: nowhere\n")
	_, err = predict.ResolveImages("", noDir)
	assert(t, errors.Is(err, predict.ErrConfig), "missing dir: got %v", err)

	notDir := filepath.Join(dir, "not_dir.yaml")
	writeFile(t, notDir, "test: file\n")
	writeFile(t, filepath.Join(dir, "file", "images"), "x")
	_, err = predict.ResolveImages("", notDir)
	assert(t, errors.Is(err, predict.ErrConfig), "not a dir: got %v", err)
}

func TestResolveEmptyDirectoryYieldsNoImages(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "yolo_params.yaml")
	writeFile(t, cfg, "test: empty\n")
	ok(t, os.MkdirAll(filepath.Join(dir, "empty", "images"), 0755))

	images, err := predict.ResolveImages("", cfg)
	assert(t, errors.Is(err, predict.ErrConfig), "expected config error, got %v", err)
	equals(t, 0, len(images))
}

func TestResolveDirectoryWithoutImages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "images", "readme.md"), "x")

	_, err := predict.ImagesInDir(filepath.Join(dir, "images"))
	assert(t, errors.Is(err, predict.ErrConfig), "expected config error, got %v", err)
}

func TestAbsoluteTestSplit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "split", "images", "x.jpg"), "x")
	cfg := filepath.Join(t.TempDir(), "yolo_params.yaml")
	writeFile(t, cfg, "test: "+filepath.Join(dir, "split")+"\n")

	images, err := predict.ResolveImages("", cfg)
	ok(t, err)
	equals(t, []string{filepath.Join(dir, "split", "images", "x.jpg")}, images)
}
