package extract

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// extractPDF pulls the plain text of every page plus all embedded raster
// images. Text and image extraction fail independently: a document whose
// image streams are corrupt still yields its text, and vice versa.
func extractPDF(data []byte) (Result, error) {
	result := Result{}

	text, textErr := extractPDFText(data)
	result.Text = text

	result.Images = extractPDFImages(data)

	if textErr != nil {
		return result, fmt.Errorf("pdf text extraction: %w", textErr)
	}

	return result, nil
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// extractPDFImages decodes every embedded image and upscales it 2x, which
// measurably improves contour detection and OCR on small diagrams.
func extractPDFImages(data []byte) []image.Image {
	var images []image.Image

	digest := func(img model.Image, singleImgPerPage bool, maxPageDigits int) error {
		decoded, err := imaging.Decode(img)
		if err != nil {
			// Undecodable streams (e.g. exotic colorspaces) are skipped.
			return nil
		}

		bounds := decoded.Bounds()
		resized := imaging.Resize(decoded, bounds.Dx()*2, bounds.Dy()*2, imaging.Lanczos)
		images = append(images, resized)
		return nil
	}

	if err := api.ExtractImages(bytes.NewReader(data), nil, digest, nil); err != nil {
		return images
	}

	return images
}
