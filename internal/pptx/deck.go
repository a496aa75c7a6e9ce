package pptx

import (
	"bytes"
	"fmt"
	"strings"

	ppt "github.com/VantageDataChat/GoPPT"
)

// BulletPrefix starts every bullet paragraph on a content slide.
const BulletPrefix = "• "

// 16:9 layout, EMU
const (
	emuPerInch = 914400

	marginLeft   = int64(0.5 * emuPerInch)
	contentWidth = int64(9.0 * emuPerInch)
	slideWidth   = int64(10.0 * emuPerInch)

	fontTitle   = 40
	fontHeading = 28
	fontBody    = 18

	colorAccent  = "FF3B82F6"
	colorHeading = "FF1E40AF"
	colorBody    = "FF334155"
)

func solidFill(argb string) *ppt.Fill {
	return ppt.NewFill().SetSolid(ppt.NewColor(argb))
}

func alignCenter(p *ppt.Paragraph) {
	p.SetAlignment(ppt.NewAlignment().SetHorizontal(ppt.HorizontalCenter))
}

// BuildDeck renders a title slide for topic followed by one slide per entry and
// returns the serialized pptx. Nothing is returned unless every slide made it
// into the written file.
func BuildDeck(topic string, slides []Slide) (deck []byte, err error) {
	if len(slides) == 0 {
		return nil, fmt.Errorf("%w: no slides to render", ErrInvalidSlides)
	}

	defer func() {
		if r := recover(); r != nil {
			deck = nil
			err = fmt.Errorf("render deck: %v", r)
		}
	}()

	p := ppt.New()
	p.GetDocumentProperties().Title = topic
	p.GetDocumentProperties().Creator = "DeckForge"

	addTitleSlide(p.GetActiveSlide(), topic)
	for _, s := range slides {
		addContentSlide(p.CreateSlide(), s)
	}

	w, err := ppt.NewWriter(p, ppt.WriterPowerPoint2007)
	if err != nil {
		return nil, fmt.Errorf("failed to create PPT writer: %w", err)
	}
	pw, ok := w.(*ppt.PPTXWriter)
	if !ok {
		return nil, fmt.Errorf("unexpected PPT writer %T", w)
	}

	var buf bytes.Buffer
	if err := pw.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to save PPT: %w", err)
	}

	written, err := ExtractSlideContent(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("verify deck: %w", err)
	}
	if len(written) != len(slides)+1 {
		return nil, fmt.Errorf("verify deck: wrote %d slides, want %d", len(written), len(slides)+1)
	}

	return buf.Bytes(), nil
}

func addTitleSlide(slide *ppt.Slide, topic string) {
	topBar := slide.CreateRichTextShape()
	topBar.SetOffsetX(0).SetOffsetY(0)
	topBar.SetWidth(slideWidth).SetHeight(int64(0.15 * emuPerInch))
	topBar.SetFill(solidFill(colorAccent))

	titleShape := slide.CreateRichTextShape()
	titleShape.SetOffsetX(marginLeft).SetOffsetY(int64(2.0 * emuPerInch))
	titleShape.SetWidth(contentWidth).SetHeight(int64(1.2 * emuPerInch))
	tr := titleShape.CreateTextRun(topic)
	tr.GetFont().SetSize(fontTitle).SetBold(true).SetColor(ppt.NewColor(colorHeading))
	alignCenter(titleShape.GetActiveParagraph())

	bottomBar := slide.CreateRichTextShape()
	bottomBar.SetOffsetX(0).SetOffsetY(int64(5.5 * emuPerInch))
	bottomBar.SetWidth(slideWidth).SetHeight(int64(0.125 * emuPerInch))
	bottomBar.SetFill(solidFill(colorAccent))
}

func addContentSlide(slide *ppt.Slide, s Slide) {
	topBar := slide.CreateRichTextShape()
	topBar.SetOffsetX(0).SetOffsetY(0)
	topBar.SetWidth(slideWidth).SetHeight(int64(0.08 * emuPerInch))
	topBar.SetFill(solidFill(colorAccent))

	titleShape := slide.CreateRichTextShape()
	titleShape.SetOffsetX(marginLeft).SetOffsetY(int64(0.3 * emuPerInch))
	titleShape.SetWidth(contentWidth).SetHeight(int64(0.8 * emuPerInch))
	tr := titleShape.CreateTextRun(stripEmphasis(s.Title))
	tr.GetFont().SetSize(fontHeading).SetBold(true).SetColor(ppt.NewColor(colorHeading))

	if len(s.Content) == 0 {
		return
	}

	body := slide.CreateRichTextShape()
	body.SetOffsetX(marginLeft).SetOffsetY(int64(1.3 * emuPerInch))
	body.SetWidth(contentWidth).SetHeight(int64(4.0 * emuPerInch))
	for i, point := range s.Content {
		if i > 0 {
			body.CreateParagraph()
		}
		run := body.CreateTextRun(BulletPrefix + stripEmphasis(strings.TrimSpace(point)))
		run.GetFont().SetSize(fontBody).SetColor(ppt.NewColor(colorBody))
	}
}

// stripEmphasis removes paired ** and __ markers models like to add.
func stripEmphasis(text string) string {
	for _, marker := range []string{"**", "__"} {
		for {
			start := strings.Index(text, marker)
			if start < 0 {
				break
			}
			end := strings.Index(text[start+len(marker):], marker)
			if end < 0 {
				break
			}
			inner := text[start+len(marker) : start+len(marker)+end]
			text = text[:start] + inner + text[start+len(marker)+end+len(marker):]
		}
	}
	return text
}
