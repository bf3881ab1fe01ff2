package render

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"image/jpeg"
	"image/png"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/go-pdf/fpdf"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
)

const (
	jpegQuality  = 90
	exportMargin = 24
	captionSize  = 20.0
)

var fileNameRe = regexp.MustCompile(`[^a-z0-9]`)

// FileName returns the download name for a section diagram.
func FileName(title string, format Format) string {
	base := fileNameRe.ReplaceAllString(strings.ToLower(title), "_")
	if base == "" {
		base = "diagram"
	}
	return fmt.Sprintf("%s_diagram.%s", base, format)
}

// Export renders markup with engine in format. JPG is rendered as PNG and
// composited on white under a title caption; PDF places that JPG on a page of
// the same size.
func Export(ctx context.Context, engine Engine, id, markup, title string, format Format, logger *slog.Logger) ([]byte, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, ErrEmpty
	}
	if logger == nil {
		logger = slog.Default()
	}

	engineFormat := format
	if format == FormatJPG || format == FormatPDF {
		engineFormat = FormatPNG
	}

	data, _, err := renderWithFallback(ctx, engine, id, markup, engineFormat, logger)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatSVG:
		return []byte(PostProcess(string(data))), nil
	case FormatPNG:
		return data, nil
	case FormatJPG:
		return composeJPG(data, title)
	case FormatPDF:
		jpg, err := composeJPG(data, title)
		if err != nil {
			return nil, err
		}
		return composePDF(jpg, title)
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

var loadCaptionFont = sync.OnceValues(func() (*truetype.Font, error) {
	return truetype.Parse(gobold.TTF)
})

// composeJPG draws a PNG on a white canvas with an optional caption above
// it and encodes the result as JPEG.
func composeJPG(pngData []byte, title string) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(pngData))
	if err != nil {
		return nil, fmt.Errorf("decoding png: %w", err)
	}
	b := img.Bounds()

	captionHeight := 0
	if title != "" {
		captionHeight = int(captionSize * 2)
	}

	width := b.Dx() + 2*exportMargin
	height := b.Dy() + 2*exportMargin + captionHeight

	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()

	if title != "" {
		ttf, err := loadCaptionFont()
		if err != nil {
			return nil, fmt.Errorf("failed to parse font: %w", err)
		}
		dc.SetFontFace(truetype.NewFace(ttf, &truetype.Options{
			Size:    captionSize,
			DPI:     72,
			Hinting: font.HintingFull,
		}))
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(title, float64(width)/2, exportMargin+float64(captionHeight)/2, 0.5, 0.5)
	}

	dc.DrawImage(img, exportMargin-b.Min.X, exportMargin+captionHeight-b.Min.Y)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dc.Image(), &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// composePDF writes a single page PDF sized to the JPEG image, in points.
func composePDF(jpgData []byte, title string) ([]byte, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(jpgData))
	if err != nil {
		return nil, fmt.Errorf("decoding jpeg: %w", err)
	}
	w, h := float64(cfg.Width), float64(cfg.Height)

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if title != "" {
		pdf.SetTitle(title, true)
	}
	pdf.AddPage()

	opts := fpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader("diagram", opts, bytes.NewReader(jpgData))
	pdf.ImageOptions("diagram", 0, 0, w, h, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}
	return buf.Bytes(), nil
}
