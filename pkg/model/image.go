package model

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
)

// ImageInfo is one composite tile of an export, positioned in composite space.
// Tiles are returned left-to-right, top-to-bottom in the order callers
// reassemble them.
type ImageInfo struct {
	Data   image.Image `json:"-"`
	X      int         `json:"x"`
	Y      int         `json:"y"`
	Width  int         `json:"width"`
	Height int         `json:"height"`
	// Blank is set when the tile's canvas could not be allocated and the image
	// carries no captured pixels.
	Blank bool `json:"blank,omitempty"`
}

// Bounds returns the tile rectangle in composite space.
func (i ImageInfo) Bounds() image.Rectangle {
	return image.Rect(i.X, i.Y, i.X+i.Width, i.Y+i.Height)
}

// EncodePNG writes the tile image as PNG.
func (i ImageInfo) EncodePNG() ([]byte, error) {
	if i.Data == nil {
		return nil, fmt.Errorf("tile at (%d,%d) has no image data", i.X, i.Y)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, i.Data); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL returns the tile as a "data:image/png;base64," URL.
func (i ImageInfo) DataURL() (string, error) {
	data, err := i.EncodePNG()
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}
