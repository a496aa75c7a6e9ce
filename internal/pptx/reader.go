package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
)

// SlideData holds extracted text and structure for one slide of a deck.
type SlideData struct {
	SlideNumber int
	Text        string
	Structure   *JSONSlide
}

// Structures for rich JSON extraction
type JSONSlide struct {
	Index  int     `json:"index"`
	Shapes []Shape `json:"shapes"`
}

type Shape struct {
	Type string    `json:"type"` // title | body | other
	Runs []TextRun `json:"runs"`
}

type TextRun struct {
	Text  string `json:"text"`
	Bold  bool   `json:"bold,omitempty"`
	Size  int    `json:"size,omitempty"` // pt
	Font  string `json:"font,omitempty"`
	Color string `json:"color,omitempty"`
}

// ExtractSlideContentFile is ExtractSlideContent for a deck on disk.
func ExtractSlideContentFile(pptxPath string) (map[int]SlideData, error) {
	data, err := os.ReadFile(pptxPath)
	if err != nil {
		return nil, err
	}
	return ExtractSlideContent(data)
}

// ExtractSlideContent extracts text and run structure from every slide of an in-memory deck.
func ExtractSlideContent(deck []byte) (map[int]SlideData, error) {
	r, err := zip.NewReader(bytes.NewReader(deck), int64(len(deck)))
	if err != nil {
		return nil, fmt.Errorf("open deck: %w", err)
	}

	result := make(map[int]SlideData)
	for _, f := range r.File {
		// ppt/slides/slide1.xml, not ppt/slides/_rels/slide1.xml.rels
		if !strings.HasPrefix(f.Name, "ppt/slides/slide") || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		numStr := strings.TrimSuffix(strings.TrimPrefix(path.Base(f.Name), "slide"), ".xml")
		slideNum, err := strconv.Atoi(numStr)
		if err != nil {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		jsonSlide, plainText, err := parseSlideXML(rc, slideNum)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.Name, err)
		}

		result[slideNum] = SlideData{
			SlideNumber: slideNum,
			Text:        strings.TrimSpace(plainText),
			Structure:   jsonSlide,
		}
	}

	return result, nil
}

func parseSlideXML(r io.Reader, index int) (*JSONSlide, string, error) {
	dec := xml.NewDecoder(r)

	slide := &JSONSlide{Index: index}
	var textBuilder strings.Builder

	var currentShape *Shape
	var currentRun *TextRun

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, "", err
		}

		switch el := tok.(type) {

		case xml.StartElement:
			switch el.Name.Local {

			case "sp": // shape
				currentShape = &Shape{Type: "other"}

			case "ph": // placeholder (title/body), nested inside the shape's nvSpPr
				if currentShape != nil {
					for _, a := range el.Attr {
						if a.Name.Local == "type" {
							currentShape.Type = normalizePlaceholder(a.Value)
						}
					}
				}

			case "r": // text run
				currentRun = &TextRun{}

			case "rPr": // run formatting
				if currentRun != nil {
					for _, a := range el.Attr {
						switch a.Name.Local {
						case "b":
							currentRun.Bold = a.Value == "1" || a.Value == "true"
						case "sz":
							if sz, err := strconv.Atoi(a.Value); err == nil {
								currentRun.Size = sz / 100 // 1/100 pt
							}
						}
					}
				}

			case "latin": // font family
				if currentRun != nil {
					for _, a := range el.Attr {
						if a.Name.Local == "typeface" {
							currentRun.Font = a.Value
						}
					}
				}

			case "srgbClr": // color
				if currentRun != nil {
					for _, a := range el.Attr {
						if a.Name.Local == "val" {
							currentRun.Color = "#" + a.Value
						}
					}
				}

			case "t": // actual text
				if currentRun != nil {
					var text string
					if err := dec.DecodeElement(&text, &el); err == nil {
						currentRun.Text = text
					}
				}
			}

		case xml.EndElement:
			switch el.Name.Local {

			case "r":
				if currentShape != nil && currentRun != nil && currentRun.Text != "" {
					currentShape.Runs = append(currentShape.Runs, *currentRun)
					textBuilder.WriteString(currentRun.Text)
					textBuilder.WriteString(" ")
				}
				currentRun = nil

			case "sp":
				if currentShape != nil && len(currentShape.Runs) > 0 {
					slide.Shapes = append(slide.Shapes, *currentShape)
				}
				currentShape = nil
			}
		}
	}

	return slide, textBuilder.String(), nil
}

func normalizePlaceholder(ph string) string {
	switch ph {
	case "title", "ctrTitle":
		return "title"
	case "body":
		return "body"
	default:
		return "other"
	}
}

// Runs returns every text run of the slide in document order.
func (s SlideData) Runs() []TextRun {
	if s.Structure == nil {
		return nil
	}
	var runs []TextRun
	for _, sh := range s.Structure.Shapes {
		runs = append(runs, sh.Runs...)
	}
	return runs
}

// Bullets returns the runs rendered as bullet paragraphs.
func (s SlideData) Bullets() []string {
	var out []string
	for _, r := range s.Runs() {
		if strings.HasPrefix(r.Text, BulletPrefix) {
			out = append(out, strings.TrimPrefix(r.Text, BulletPrefix))
		}
	}
	return out
}
