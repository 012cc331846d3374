package protectimg

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
)

const pngDataURLPrefix = "data:image/png;base64,"

// EncodePNGToBase64 encodes an image as PNG and returns a base64 string.
func EncodePNGToBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// EncodePNGDataURL encodes an image as a PNG data URL suitable for an img src.
func EncodePNGDataURL(img image.Image) (string, error) {
	encoded, err := EncodePNGToBase64(img)
	if err != nil {
		return "", err
	}
	return pngDataURLPrefix + encoded, nil
}
