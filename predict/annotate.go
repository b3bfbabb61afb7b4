package predict

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/Code-r4Life/Object-Detection-YOLO/datastructures"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

var font *truetype.Font

func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

var palette = []color.RGBA{
	{R: 255, G: 56, B: 56, A: 255},
	{R: 255, G: 157, B: 151, A: 255},
	{R: 255, G: 112, B: 31, A: 255},
	{R: 255, G: 178, B: 29, A: 255},
	{R: 207, G: 210, B: 49, A: 255},
	{R: 72, G: 249, B: 10, A: 255},
	{R: 146, G: 204, B: 23, A: 255},
	{R: 61, G: 219, B: 134, A: 255},
	{R: 26, G: 147, B: 52, A: 255},
	{R: 0, G: 212, B: 187, A: 255},
	{R: 44, G: 153, B: 168, A: 255},
	{R: 0, G: 194, B: 255, A: 255},
	{R: 52, G: 69, B: 147, A: 255},
	{R: 100, G: 115, B: 255, A: 255},
	{R: 0, G: 24, B: 236, A: 255},
	{R: 132, G: 56, B: 255, A: 255},
	{R: 82, G: 0, B: 133, A: 255},
	{R: 203, G: 56, B: 255, A: 255},
	{R: 255, G: 149, B: 200, A: 255},
	{R: 255, G: 55, B: 199, A: 255},
}

// ClassColor is the box colour used for a class id.
func ClassColor(id int) color.RGBA {
	if id < 0 {
		id = -id
	}
	return palette[id%len(palette)]
}

// Label is the text drawn next to a detection.
func Label(d datastructures.Detection) string {
	return fmt.Sprintf("%s %.2f", d.ClassName, d.Confidence)
}

// Annotate draws every detection of res onto a copy of img and returns the
// copy. img is never written to.
func Annotate(img image.Image, res *DetectionResult) *image.RGBA {
	dc := gg.NewContextForImage(img)
	w, h := dc.Width(), dc.Height()

	if res != nil && len(res.Detections) > 0 {
		lineWidth := math.Max(2, math.Round(float64(min(w, h))/320))
		fontSize := math.Max(11, float64(min(w, h))/40)
		dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: fontSize}))

		for _, d := range res.Detections {
			b := d.BBox.Scale(d.Units, datastructures.Pixels, w, h)
			x0, y0 := b.X-b.W/2, b.Y-b.H/2
			col := ClassColor(d.ClassID)

			dc.SetColor(col)
			dc.SetLineWidth(lineWidth)
			dc.DrawRectangle(x0, y0, b.W, b.H)
			dc.Stroke()

			drawLabel(dc, Label(d), x0, y0, col)
		}
	}

	return dc.Image().(*image.RGBA)
}

func drawLabel(dc *gg.Context, text string, x, y float64, bg color.RGBA) {
	tw, th := dc.MeasureString(text)
	pad := 2.0
	top := y - th - 2*pad
	if top < 0 {
		top = y
	}
	dc.SetColor(bg)
	dc.DrawRectangle(x, top, tw+2*pad, th+2*pad)
	dc.Fill()

	dc.SetColor(color.White)
	dc.DrawStringAnchored(text, x+pad, top+pad, 0, 1)
}
