// Package diagram filters embedded document images down to diagram-like
// candidates and converts them to text via OCR. Logos, decorative photos and
// scanned text blocks are discarded by a contour-density heuristic before any
// OCR call is made.
package diagram

import (
	"context"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

const (
	// An image qualifies as a diagram when it has more than minContours
	// contours whose area exceeds minContourArea pixels.
	minContours     = 2
	minContourArea  = 500
	thresholdWindow = 11
	thresholdOffset = 2
	blurSigma       = 1.0
	sharpenSigma    = 1.0
)

// Converter turns diagram-like images into text.
type Converter struct {
	ocr    OCRClient
	logger zerolog.Logger
}

// NewConverter builds a Converter around the provided OCR capability.
func NewConverter(ocr OCRClient, logger zerolog.Logger) *Converter {
	return &Converter{
		ocr:    ocr,
		logger: logger.With().Str("component", "diagram_converter").Logger(),
	}
}

// ExtractDiagramText runs the contour filter over every image and OCRs the
// qualifying ones, concatenating their text with newline separators. Images
// that fail OCR contribute nothing; no qualifying images yields the empty
// string.
func (c *Converter) ExtractDiagramText(ctx context.Context, images []image.Image) string {
	var parts []string

	for i, img := range images {
		if !c.IsDiagram(img) {
			continue
		}

		text, err := c.ocr.Text(ctx, img)
		if err != nil {
			c.logger.Warn().Err(err).Int("image_index", i).Msg("ocr failed for diagram candidate")
			continue
		}

		text = strings.TrimSpace(text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, "\n")
}

// IsDiagram applies the contour-density heuristic: grayscale, Gaussian blur,
// sharpen, adaptive threshold, then count connected contour regions larger
// than the minimum area.
func (c *Converter) IsDiagram(img image.Image) bool {
	gray := imaging.Grayscale(img)
	blurred := imaging.Blur(gray, blurSigma)
	sharpened := imaging.Sharpen(blurred, sharpenSigma)

	binary := adaptiveThreshold(toGray(sharpened), thresholdWindow, thresholdOffset)
	contours := countContours(binary, minContourArea)

	return contours > minContours
}
