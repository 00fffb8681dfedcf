package diagram

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// OCRClient extracts text from a single image. Implementations are injected
// so tests can run without a Tesseract install.
type OCRClient interface {
	Text(ctx context.Context, img image.Image) (string, error)
}

// TesseractClient implements OCRClient against a local Tesseract install via
// gosseract. A fresh client is created per call; Tesseract handles are not
// safe for concurrent reuse.
type TesseractClient struct {
	// Languages passed to Tesseract, e.g. "eng". Empty uses the default.
	Language string
}

// Text runs OCR over the image and returns the recognized text.
func (c *TesseractClient) Text(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode image for ocr: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if c.Language != "" {
		if err := client.SetLanguage(c.Language); err != nil {
			return "", fmt.Errorf("set ocr language: %w", err)
		}
	}

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("load image into ocr: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}

	return text, nil
}
