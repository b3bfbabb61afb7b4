package predict

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Code-r4Life/Object-Detection-YOLO/datastructures"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Writer persists annotated images and label files under Dir:
//
//	<Dir>/images/<name>.<ext>
//	<Dir>/labels/<name>.txt
type Writer struct {
	Dir string
}

// NewWriter creates the output layout. Existing directories are fine.
func NewWriter(dir string) (*Writer, error) {
	w := &Writer{Dir: dir}
	for _, d := range []string{w.ImagesDir(), w.LabelsDir()} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, errors.Wrapf(err, "couldn't create %s", d)
		}
	}
	return w, nil
}

func (w *Writer) ImagesDir() string { return filepath.Join(w.Dir, "images") }

func (w *Writer) LabelsDir() string { return filepath.Join(w.Dir, "labels") }

// Paths returns where the artifacts for srcPath end up.
func (w *Writer) Paths(srcPath string) (imagePath, labelPath string) {
	name := filepath.Base(srcPath)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(w.ImagesDir(), name), filepath.Join(w.LabelsDir(), stem+".txt")
}

// Write stores the annotated image and the label file for srcPath. Label
// coordinates are always written normalized.
func (w *Writer) Write(srcPath string, annotated image.Image, res *DetectionResult) (imagePath, labelPath string, err error) {
	imagePath, labelPath = w.Paths(srcPath)
	if err := os.MkdirAll(filepath.Dir(imagePath), 0755); err != nil {
		return "", "", errors.Wrap(err, "couldn't create images dir")
	}
	if err := os.MkdirAll(filepath.Dir(labelPath), 0755); err != nil {
		return "", "", errors.Wrap(err, "couldn't create labels dir")
	}

	if err := imaging.Save(annotated, imagePath); err != nil {
		return "", "", errors.Wrapf(err, "couldn't save %s", imagePath)
	}

	f, err := os.Create(labelPath)
	if err != nil {
		return "", "", errors.Wrapf(err, "couldn't create %s", labelPath)
	}
	defer f.Close()

	b := annotated.Bounds()
	if err := WriteLabels(f, res.Detections, b.Dx(), b.Dy()); err != nil {
		return "", "", errors.Wrapf(err, "couldn't write %s", labelPath)
	}
	return imagePath, labelPath, f.Close()
}

// LabelLine is one line of a label file.
type LabelLine struct {
	ClassID int
	BBox    datastructures.BBox
}

// WriteLabels writes "<class_id> <x> <y> <w> <h>" per detection, boxes
// normalized to the image size with 6 decimals.
func WriteLabels(out io.Writer, detections []datastructures.Detection, width, height int) error {
	bw := bufio.NewWriter(out)
	for _, d := range detections {
		b := d.BBox.Scale(d.Units, datastructures.Normalized, width, height)
		if _, err := fmt.Fprintf(bw, "%d %.6f %.6f %.6f %.6f\n", d.ClassID, b.X, b.Y, b.W, b.H); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ParseLabels reads a label file written by WriteLabels.
func ParseLabels(in io.Reader) ([]LabelLine, error) {
	var lines []LabelLine
	scanner := bufio.NewScanner(in)
	n := 0
	for scanner.Scan() {
		n++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 5 {
			return nil, errors.Errorf("line %d: expected 5 fields, got %d", n, len(fields))
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: class id", n)
		}
		var v [4]float64
		for i := range v {
			v[i], err = strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: coordinate %d", n, i)
			}
		}
		lines = append(lines, LabelLine{ClassID: id, BBox: datastructures.BBox{X: v[0], Y: v[1], W: v[2], H: v[3]}})
	}
	return lines, scanner.Err()
}
