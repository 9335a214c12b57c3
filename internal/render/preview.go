package render

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fogleman/gg"
)

// PreviewScale is the PNG resolution in pixels per millimetre.
const PreviewScale = 3.0

// ErrPageOutOfRange is returned for a page number outside the layout.
var ErrPageOutOfRange = errors.New("page out of range")

// RenderPreviewPNG draws page n (1-based) of l as a PNG. The built-in bitmap
// font ignores sizes and weights, so the preview shows placement rather than
// typography.
func RenderPreviewPNG(w io.Writer, l *DocumentLayout, n int) (err error) {
	if l == nil {
		return fmt.Errorf("%w: layout is nil", ErrRender)
	}
	if n < 1 || n > len(l.Pages) {
		return fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, n, len(l.Pages))
	}
	defer func() {
		if p := recover(); p != nil {
			slog.Error("png backend panicked", "title", l.Title, "page", n, "panic", p)
			err = fmt.Errorf("%w: %v", ErrRender, p)
		}
	}()

	g := l.Geometry
	dc := gg.NewContext(int(g.Width*PreviewScale), int(g.Height*PreviewScale))
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	for _, e := range l.Pages[n-1].Elements {
		drawPreview(dc, e)
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return nil
}

func drawPreview(dc *gg.Context, e Element) {
	x, y, w, h := e.X*PreviewScale, e.Y*PreviewScale, e.W*PreviewScale, e.H*PreviewScale
	switch e.Kind {
	case KindBorder:
		dc.SetRGB255(int(e.Ink.R), int(e.Ink.G), int(e.Ink.B))
		dc.SetLineWidth(1.5)
		dc.DrawRectangle(x, y, w, h)
		dc.Stroke()
	case KindBand:
		dc.SetRGB255(int(e.Fill.R), int(e.Fill.G), int(e.Fill.B))
		dc.DrawRectangle(x, y, w, h)
		dc.Fill()
	case KindRule:
		dc.SetRGB255(int(e.Ink.R), int(e.Ink.G), int(e.Ink.B))
		dc.SetLineWidth(1.2)
		dc.DrawLine(x, y, x+w, y)
		dc.Stroke()
	case KindText, KindFooter:
		dc.SetRGB255(int(e.Ink.R), int(e.Ink.G), int(e.Ink.B))
		if e.Align == AlignRight {
			dc.DrawStringAnchored(e.Text, x+w, y+h/2, 1, 0.5)
			return
		}
		dc.DrawStringAnchored(e.Text, x, y+h/2, 0, 0.5)
	}
}
