package render

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	ptToMM      = 25.4 / 72
	lineSpacing = 1.4
	epsilon     = 1e-6
)

// Font is a core-font style ("", "B", "I" or "BI") and a size in points.
type Font struct {
	Style string
	Size  float64
}

// LineHeight is the vertical advance of one line in millimetres.
func (f Font) LineHeight() float64 {
	return f.Size * ptToMM * lineSpacing
}

func (f Font) Bold() bool { return strings.Contains(f.Style, "B") }

var (
	TitleFont      = Font{Style: "B", Size: 18}
	SubtitleFont   = Font{Style: "I", Size: 12}
	SectionFont    = Font{Style: "B", Size: 14}
	SubHeadingFont = Font{Style: "B", Size: 11}
	BodyFont       = Font{Style: "", Size: 11}
	FooterFont     = Font{Style: "I", Size: 9}
)

// Color is an RGB colour.
type Color struct{ R, G, B uint8 }

var (
	HeaderFill  = Color{37, 99, 235}
	HeaderInk   = Color{255, 255, 255}
	SectionFill = Color{226, 234, 252}
	BorderInk   = Color{160, 160, 160}
	RuleInk     = Color{37, 99, 235}
	TextInk     = Color{33, 33, 33}
	FooterInk   = Color{110, 110, 110}
)

// Geometry is the fixed page setup in millimetres.
type Geometry struct {
	Width        float64
	Height       float64
	Margin       float64 // content inset on every side
	BorderInset  float64 // border rectangle inset, inside the margin
	FooterHeight float64 // reserved above the bottom margin for the footer
	BlockSpacing float64 // gap after each block
	BandPadding  float64 // padding inside header and section bands
}

// A4 returns the portrait A4 page used for topic documents.
func A4() Geometry {
	return Geometry{
		Width:        210,
		Height:       297,
		Margin:       15,
		BorderInset:  10,
		FooterHeight: 10,
		BlockSpacing: 4,
		BandPadding:  3,
	}
}

func (g Geometry) ContentWidth() float64 { return g.Width - 2*g.Margin }
func (g Geometry) Top() float64          { return g.Margin }

// Bottom is the lowest y any content may reach.
func (g Geometry) Bottom() float64 { return g.Height - g.Margin - g.FooterHeight }

func (g Geometry) validate() error {
	if g.ContentWidth() <= 0 {
		return fmt.Errorf("page geometry leaves no content width")
	}
	tallest := max(SectionFont.LineHeight()+2*g.BandPadding, TitleFont.LineHeight())
	if g.Bottom()-g.Top() < tallest {
		return fmt.Errorf("page geometry leaves no room for a line")
	}
	return nil
}

// ElementKind says how an element is drawn.
type ElementKind int

const (
	KindBorder ElementKind = iota // stroked page border
	KindBand                      // filled background rectangle
	KindRule                      // horizontal line at Y, W wide
	KindText                      // one line of text
	KindFooter                    // page footer text
)

type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Element is one drawing instruction. Coordinates are millimetres from the
// top-left corner of the page; text elements occupy the line box (X, Y, W, H).
type Element struct {
	Kind  ElementKind
	X, Y  float64
	W, H  float64
	Text  string
	Font  Font
	Align Align
	Fill  Color
	Ink   Color
}

func (e Element) Bottom() float64 { return e.Y + e.H }

type Page struct {
	Number   int
	Elements []Element
}

// DocumentLayout is a fully placed document, ready for any backend.
type DocumentLayout struct {
	Title    string
	Date     time.Time
	Geometry Geometry
	Pages    []Page
}

func (l *DocumentLayout) PageCount() int { return len(l.Pages) }

// Text returns the text of every element on page n (1-based) in drawing order.
func (l *DocumentLayout) Text(n int) []string {
	if n < 1 || n > len(l.Pages) {
		return nil
	}
	var out []string
	for _, e := range l.Pages[n-1].Elements {
		if e.Kind == KindText || e.Kind == KindFooter {
			out = append(out, e.Text)
		}
	}
	return out
}

// Measurer reports the printed width of text in millimetres.
type Measurer interface {
	TextWidth(text string, f Font) float64
}

// ApproxMeasurer estimates Helvetica widths from the rune count. It is used
// where no backend is available, such as in tests.
type ApproxMeasurer struct{}

func (ApproxMeasurer) TextWidth(text string, f Font) float64 {
	w := float64(utf8.RuneCountInString(text)) * f.Size * ptToMM * 0.5
	if f.Bold() {
		w *= 1.1
	}
	return w
}

// LayoutInput is the content of one topic document.
type LayoutInput struct {
	CourseName  string
	ModuleTitle string
	TopicTitle  string
	Day         int
	Body        string
	Date        time.Time // recorded as the document date; zero means unset
}

// HeaderTitle is the banner text "{course} - {module} - {topic}".
func HeaderTitle(courseName, moduleTitle, topicTitle string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{courseName, moduleTitle, topicTitle} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " - ")
}

// PageLayoutState is the flow position while laying out a document. Each
// step returns the updated state; like a slice passed to append, only the
// returned value may be used afterwards.
type PageLayoutState struct {
	CursorY   float64
	PageIndex int
	Pages     []Page
}

// NewPage appends a bordered page and moves the cursor to its top margin.
func (s PageLayoutState) NewPage(g Geometry) PageLayoutState {
	border := Element{
		Kind: KindBorder,
		X:    g.BorderInset,
		Y:    g.BorderInset,
		W:    g.Width - 2*g.BorderInset,
		H:    g.Height - 2*g.BorderInset,
		Ink:  BorderInk,
	}
	s.Pages = append(s.Pages, Page{Number: len(s.Pages) + 1, Elements: []Element{border}})
	s.PageIndex = len(s.Pages) - 1
	s.CursorY = g.Top()
	return s
}

// Fits reports whether h millimetres fit between the cursor and the bottom.
func (s PageLayoutState) Fits(h float64, g Geometry) bool {
	return s.CursorY+h <= g.Bottom()+epsilon
}

// Ensure starts a new page unless h fits on the current one. A page whose
// cursor is still at the top is never abandoned.
func (s PageLayoutState) Ensure(h float64, g Geometry) PageLayoutState {
	if s.Fits(h, g) || s.CursorY <= g.Top()+epsilon {
		return s
	}
	return s.NewPage(g)
}

// Place adds e to the current page without moving the cursor.
func (s PageLayoutState) Place(e Element) PageLayoutState {
	page := &s.Pages[s.PageIndex]
	page.Elements = append(page.Elements, e)
	return s
}

// Advance moves the cursor down by dy.
func (s PageLayoutState) Advance(dy float64) PageLayoutState {
	s.CursorY += dy
	return s
}

// ErrHeaderTooTall is returned when the header banner alone overflows a page.
var ErrHeaderTooTall = errors.New("document header does not fit on a page")

// Layout places a topic document on as many pages as it needs. The body is
// stripped of markdown, split into blocks on blank lines and flowed greedily:
// a block that fits on an empty page is never split, longer blocks break
// between lines, and nothing is placed below Geometry.Bottom.
func Layout(in LayoutInput, g Geometry, m Measurer) (*DocumentLayout, error) {
	if m == nil {
		return nil, fmt.Errorf("layout: measurer is nil")
	}
	if err := g.validate(); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}

	title := HeaderTitle(in.CourseName, in.ModuleTitle, in.TopicTitle)
	s := PageLayoutState{}.NewPage(g)

	s, err := layoutHeader(s, g, m, title, in.Day)
	if err != nil {
		return nil, err
	}
	for _, block := range SplitBlocks(StripMarkdown(in.Body)) {
		s = layoutBlock(s, g, m, block)
	}
	s = addFooters(s, g)

	return &DocumentLayout{
		Title:    title,
		Date:     in.Date,
		Geometry: g,
		Pages:    s.Pages,
	}, nil
}

func measureWith(m Measurer, f Font) func(string) float64 {
	return func(s string) float64 { return m.TextWidth(s, f) }
}

func layoutHeader(s PageLayoutState, g Geometry, m Measurer, title string, day int) (PageLayoutState, error) {
	textW := g.ContentWidth() - 2*g.BandPadding
	lines := Wrap(title, textW, measureWith(m, TitleFont))
	if len(lines) == 0 {
		lines = []string{""}
	}
	lh := TitleFont.LineHeight()
	bandH := float64(len(lines))*lh + 2*g.BandPadding
	subH := SubtitleFont.LineHeight()

	total := bandH + 2*g.BlockSpacing + subH
	if g.Top()+total > g.Bottom() {
		return s, ErrHeaderTooTall
	}

	s = s.Place(Element{Kind: KindBand, X: g.Margin, Y: s.CursorY, W: g.ContentWidth(), H: bandH, Fill: HeaderFill})
	y := s.CursorY + g.BandPadding
	for _, line := range lines {
		s = s.Place(Element{
			Kind: KindText,
			X:    g.Margin + g.BandPadding,
			Y:    y,
			W:    textW,
			H:    lh,
			Text: line,
			Font: TitleFont,
			Ink:  HeaderInk,
		})
		y += lh
	}
	s = s.Advance(bandH + g.BlockSpacing)

	s = s.Place(Element{Kind: KindRule, X: g.Margin, Y: s.CursorY, W: g.ContentWidth(), Ink: RuleInk})
	s = s.Advance(g.BlockSpacing)

	s = s.Place(Element{
		Kind: KindText,
		X:    g.Margin,
		Y:    s.CursorY,
		W:    g.ContentWidth(),
		H:    subH,
		Text: fmt.Sprintf("Day %d", day),
		Font: SubtitleFont,
		Ink:  TextInk,
	})
	s = s.Advance(subH + g.BlockSpacing)
	return s, nil
}

type styledLine struct {
	text string
	font Font
}

func layoutBlock(s PageLayoutState, g Geometry, m Measurer, block string) PageLayoutState {
	kind := ClassifyBlock(block)
	if kind == BlockSection {
		return layoutSection(s, g, strings.TrimSpace(block))
	}

	var lines []styledLine
	for i, raw := range strings.Split(block, "\n") {
		font := BodyFont
		if kind == BlockItem && i == 0 {
			font = SubHeadingFont
		} else if ClassifyLine(raw) != LineBody {
			font = SubHeadingFont
		}
		for _, w := range Wrap(raw, g.ContentWidth(), measureWith(m, font)) {
			lines = append(lines, styledLine{text: w, font: font})
		}
	}
	if len(lines) == 0 {
		return s
	}

	height := 0.0
	for _, l := range lines {
		height += l.font.LineHeight()
	}
	// Keep the block together when it can fit on a page of its own.
	if height <= g.Bottom()-g.Top() {
		s = s.Ensure(height, g)
	}

	for _, l := range lines {
		lh := l.font.LineHeight()
		s = s.Ensure(lh, g)
		s = s.Place(Element{
			Kind: KindText,
			X:    g.Margin,
			Y:    s.CursorY,
			W:    g.ContentWidth(),
			H:    lh,
			Text: l.text,
			Font: l.font,
			Ink:  TextInk,
		})
		s = s.Advance(lh)
	}
	return s.Advance(g.BlockSpacing)
}

func layoutSection(s PageLayoutState, g Geometry, text string) PageLayoutState {
	lh := SectionFont.LineHeight()
	h := lh + 2*g.BandPadding
	s = s.Ensure(h, g)
	s = s.Place(Element{Kind: KindBand, X: g.Margin, Y: s.CursorY, W: g.ContentWidth(), H: h, Fill: SectionFill})
	s = s.Place(Element{
		Kind: KindText,
		X:    g.Margin + g.BandPadding,
		Y:    s.CursorY + g.BandPadding,
		W:    g.ContentWidth() - 2*g.BandPadding,
		H:    lh,
		Text: text,
		Font: SectionFont,
		Ink:  TextInk,
	})
	return s.Advance(h + g.BlockSpacing)
}

// addFooters writes "Page i of N" on every page once N is known.
func addFooters(s PageLayoutState, g Geometry) PageLayoutState {
	n := len(s.Pages)
	lh := FooterFont.LineHeight()
	for i := range s.Pages {
		s.Pages[i].Elements = append(s.Pages[i].Elements, Element{
			Kind:  KindFooter,
			X:     g.Margin,
			Y:     g.Height - g.Margin - lh,
			W:     g.ContentWidth(),
			H:     lh,
			Text:  fmt.Sprintf("Page %d of %d", i+1, n),
			Font:  FooterFont,
			Align: AlignRight,
			Ink:   FooterInk,
		})
	}
	return s
}
