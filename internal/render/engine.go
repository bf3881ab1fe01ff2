// Package render turns accepted Mermaid markup into SVG and raster images
// through an external rendering engine.
package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Format is an output format.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
	FormatJPG Format = "jpg"
	FormatPDF Format = "pdf"
)

// ParseFormat validates a format name. "jpeg" is accepted for jpg.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "svg":
		return FormatSVG, nil
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPG, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatJPG:
		return "image/jpeg"
	case FormatPDF:
		return "application/pdf"
	default:
		return "image/svg+xml"
	}
}

// Engine renders Mermaid markup. Engines support FormatSVG and FormatPNG;
// JPG and PDF are composed from the PNG.
type Engine interface {
	Render(ctx context.Context, id, markup string, format Format) ([]byte, error)
	Name() string
}

var (
	// ErrThrottled is returned when a render is refused by the rate gate and
	// nothing is cached.
	ErrThrottled = errors.New("render throttled")
	// ErrEmpty is returned when there is no markup to render.
	ErrEmpty = errors.New("nothing to render")
)

// Error is a render failure. Markup holds the diagram that could not be
// rendered so it can be shown for diagnosis.
type Error struct {
	ID     string
	Markup string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("rendering diagram %s: %v", e.ID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
