package report

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/itemdesk/itemdesk/pkg/records"
	"github.com/itemdesk/itemdesk/pkg/telemetry"
)

// DefaultTitle is the heading of every report unless the layout overrides it.
const DefaultTitle = "Exported Data Report"

const ellipsis = "..."

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Layout positions every element of the report, in points from the top-left
// corner. Y values are text baselines.
type Layout struct {
	PageWidth  float64
	PageHeight float64
	Margin     float64

	// BottomMargin bounds the last row baseline on a page when paginating.
	BottomMargin float64

	Title      string
	FontFamily string
	TitleSize  float64
	BodySize   float64

	TitleY    float64
	DateY     float64
	HeaderY   float64
	FirstRowY float64
	RowStep   float64

	// ColumnX holds column offsets from the left margin.
	ColumnX [3]float64

	// Paginate moves rows that pass the bottom margin onto new pages.
	Paginate bool
	// ClipCells truncates cell text to its column width.
	ClipCells bool
	// CellPadding is the gap kept between a clipped cell and the next column.
	CellPadding float64
}

// ReferenceLayout is a single page with no wrapping. Rows past the bottom
// edge are placed off the page.
func ReferenceLayout() Layout {
	return Layout{
		PageWidth:    600,
		PageHeight:   400,
		Margin:       50,
		BottomMargin: 50,
		Title:        DefaultTitle,
		FontFamily:   "Helvetica",
		TitleSize:    20,
		BodySize:     12,
		TitleY:       50,
		DateY:        70,
		HeaderY:      100,
		FirstRowY:    120,
		RowStep:      20,
		ColumnX:      [3]float64{0, 150, 300},
		CellPadding:  6,
	}
}

// DefaultLayout is the reference geometry with pagination and cell clipping.
func DefaultLayout() Layout {
	l := ReferenceLayout()
	l.Paginate = true
	l.ClipCells = true
	return l
}

// columnWidth returns the width available to column i.
func (l Layout) columnWidth(i int) float64 {
	if i+1 < len(l.ColumnX) {
		return l.ColumnX[i+1] - l.ColumnX[i]
	}
	return l.PageWidth - l.Margin - l.ColumnX[i] - l.Margin
}

// lastRowY is the lowest baseline a row may use when paginating.
func (l Layout) lastRowY() float64 {
	return l.PageHeight - l.BottomMargin
}

// RowsPerPage reports how many rows fit on the first page and on each
// continuation page. Without pagination both are 0 and every row goes on the
// first page.
func (l Layout) RowsPerPage() (first, rest int) {
	if !l.Paginate || l.RowStep <= 0 {
		return 0, 0
	}
	first = int((l.lastRowY()-l.FirstRowY)/l.RowStep) + 1
	rest = int((l.lastRowY()-(l.Margin+l.RowStep))/l.RowStep) + 1
	return max(first, 0), max(rest, 1)
}

// Document is a rendered report.
type Document struct {
	Bytes []byte
	Pages int
}

// Renderer lays out records as a PDF report.
type Renderer struct {
	layout   Layout
	now      func() time.Time
	compress bool
	tel      *telemetry.Telemetry
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock sets the clock used for the export date.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		r.now = now
	}
}

// WithCompression toggles stream compression. Uncompressed output can be
// searched for text operators.
func WithCompression(compress bool) Option {
	return func(r *Renderer) {
		r.compress = compress
	}
}

// WithTelemetry instruments each render.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(r *Renderer) {
		r.tel = tel
	}
}

// NewRenderer creates a renderer for the given layout.
func NewRenderer(layout Layout, opts ...Option) *Renderer {
	if layout.Title == "" {
		layout.Title = DefaultTitle
	}
	if layout.FontFamily == "" {
		layout.FontFamily = "Helvetica"
	}
	r := &Renderer{
		layout:   layout,
		now:      time.Now,
		compress: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render lays out recs in order. An empty slice still produces the title,
// date line and column headers.
func (r *Renderer) Render(recs []records.Record) (*Document, error) {
	return r.RenderContext(context.Background(), recs)
}

// RenderContext is Render with a caller context for tracing.
func (r *Renderer) RenderContext(ctx context.Context, recs []records.Record) (doc *Document, err error) {
	op := r.tel.StartOperation(ctx, "report.render",
		telemetry.AttrRowCount.Int(len(recs)),
		telemetry.AttrFormat.String("pdf"),
	)
	defer func() {
		if doc != nil {
			if op.Span != nil {
				op.Span.SetAttributes(telemetry.AttrPageCount.Int(doc.Pages))
			}
			op.Metrics().RecordPages(doc.Pages)
		}
		op.End(err)
	}()

	l := r.layout
	now := r.now()

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: l.PageWidth, Ht: l.PageHeight},
	})
	pdf.SetCompression(r.compress)
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.SetTitle(l.Title, true)
	pdf.SetCreator("itemdesk", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont(l.FontFamily, "", l.TitleSize)
	pdf.Text(l.Margin, l.TitleY, tr(l.Title))

	pdf.SetFont(l.FontFamily, "", l.BodySize)
	pdf.Text(l.Margin, l.DateY, "Date of Export: "+now.Format("1/2/2006"))
	r.header(pdf, l.HeaderY)

	first, rest := l.RowsPerPage()
	y := l.FirstRowY
	onPage := 0
	capacity := first
	for _, rec := range recs {
		if l.Paginate && l.RowStep > 0 && onPage == capacity {
			pdf.AddPage()
			pdf.SetFont(l.FontFamily, "", l.BodySize)
			r.header(pdf, l.Margin)
			y = l.Margin + l.RowStep
			onPage = 0
			capacity = rest
		}

		cells := [3]string{strconv.FormatInt(rec.ID, 10), rec.Name, rec.Description}
		for i, cell := range cells {
			text := tr(flatten(cell))
			if l.ClipCells {
				text = clip(pdf, text, l.columnWidth(i)-l.CellPadding)
			}
			pdf.Text(l.Margin+l.ColumnX[i], y, text)
		}
		y += l.RowStep
		onPage++
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}

	return &Document{Bytes: buf.Bytes(), Pages: pdf.PageCount()}, nil
}

func (r *Renderer) header(pdf *fpdf.Fpdf, y float64) {
	l := r.layout
	for i, name := range []string{"ID", "Name", "Description"} {
		pdf.Text(l.Margin+l.ColumnX[i], y, name)
	}
}

// flatten keeps a cell on one baseline.
func flatten(s string) string {
	return lineBreaks.Replace(s)
}

// clip shortens s until it fits width, marking the cut with an ellipsis.
// s is single-byte encoded.
func clip(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	for n := len(s) - 1; n > 0; n-- {
		candidate := strings.TrimRight(s[:n], " ") + ellipsis
		if pdf.GetStringWidth(candidate) <= width {
			return candidate
		}
	}
	return ellipsis
}
