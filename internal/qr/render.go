package qr

import (
	qrcode "github.com/skip2/go-qrcode"
)

// pngSize is the side length in pixels of the rendered QR image.
const pngSize = 256

// RenderPNG encodes the given Payload as JSON and renders it to a QR
// PNG image, the artifact an HTTP handler serves for display/printing.
func RenderPNG(p Payload) ([]byte, error) {
	body, err := p.Encode()
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(string(body), qrcode.Medium, pngSize)
}
