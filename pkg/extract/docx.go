package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	"io"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
)

// extractDOCX reads a DOCX container: paragraph text from word/document.xml
// and raster images from the word/media/ parts.
func extractDOCX(data []byte) (Result, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("open docx container: %w", err)
	}

	result := Result{}
	var mediaNames []string
	media := map[string]image.Image{}

	for _, file := range reader.File {
		switch {
		case file.Name == "word/document.xml":
			text, err := parseDocumentXML(file)
			if err != nil {
				return result, fmt.Errorf("parse docx document: %w", err)
			}
			result.Text = text
		case strings.HasPrefix(file.Name, "word/media/"):
			img, err := decodeMediaPart(file)
			if err != nil {
				continue
			}
			media[file.Name] = img
			mediaNames = append(mediaNames, file.Name)
		}
	}

	// Stable image order regardless of zip directory layout.
	sort.Strings(mediaNames)
	for _, name := range mediaNames {
		result.Images = append(result.Images, media[name])
	}

	return result, nil
}

// parseDocumentXML walks the WordprocessingML body collecting the text runs
// of each paragraph, one line per <w:p>.
func parseDocumentXML(file *zip.File) (string, error) {
	rc, err := file.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var builder strings.Builder
	inTextRun := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return builder.String(), err
		}

		switch element := token.(type) {
		case xml.StartElement:
			if element.Name.Local == "t" {
				inTextRun = true
			}
		case xml.EndElement:
			switch element.Name.Local {
			case "t":
				inTextRun = false
			case "p":
				builder.WriteByte('\n')
			}
		case xml.CharData:
			if inTextRun {
				builder.Write(element)
			}
		}
	}

	return builder.String(), nil
}

func decodeMediaPart(file *zip.File) (image.Image, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return imaging.Decode(rc)
}
