package predict

import (
	"bytes"
	"encoding/base64"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"
)

// DecodeImage decodes png, jpeg, gif, bmp or tiff bytes, applying EXIF
// orientation. Undecodable input is an InputError.
func DecodeImage(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, InputError(err, "invalid image")
	}
	return img, nil
}

// OpenImage decodes the image stored at path.
func OpenImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, InputError(err, "image not found at %s", path)
	}
	defer f.Close()
	return DecodeImage(f)
}

// EncodeJPEG encodes img as a JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DataURL encodes img as a base64 JPEG data URL.
func DataURL(img image.Image) (string, error) {
	data, err := EncodeJPEG(img)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}
