package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/itemdesk/itemdesk/pkg/records"
	"github.com/itemdesk/itemdesk/pkg/telemetry"
)

const utf8BOM = "\ufeff"

// Draft is a parsed row that has not been inserted yet.
type Draft struct {
	// Line is the 1-based source line of the row.
	Line        int
	Name        string
	Description string
}

// Warning describes a row that was repaired or skipped in lenient mode.
type Warning struct {
	Line    int
	Message string
	// Skipped is set when the row produced no draft.
	Skipped bool
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Message)
}

// ParseOptions controls how rows that do not match the header are handled.
type ParseOptions struct {
	// Strict turns a field count mismatch into a parse error.
	Strict bool
}

// columns maps header positions to record fields. -1 means absent.
type columns struct {
	name        int
	description int
	width       int
}

func mapHeader(header []string) columns {
	cols := columns{name: -1, description: -1, width: len(header)}

	var rest []int
	for i, cell := range header {
		if i == 0 {
			cell = strings.TrimPrefix(cell, utf8BOM)
		}
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "id":
			continue
		case "name":
			if cols.name < 0 {
				cols.name = i
			}
		case "description":
			if cols.description < 0 {
				cols.description = i
			}
		}
		rest = append(rest, i)
	}

	if cols.name >= 0 && cols.description >= 0 {
		return cols
	}

	cols.name, cols.description = -1, -1
	if len(rest) > 0 {
		cols.name = rest[0]
	}
	if len(rest) > 1 {
		cols.description = rest[1]
	}
	return cols
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func allEmpty(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Parse reads a CSV document whose first record is a header row and returns
// one draft per data row. Malformed quoting fails the whole document. An
// empty or header-only document yields no drafts and no error.
func Parse(r io.Reader, opts ParseOptions) ([]Draft, []Warning, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = false

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []Draft{}, nil, nil
	}
	if err != nil {
		return nil, nil, csvParseError(err)
	}
	cols := mapHeader(header)

	drafts := []Draft{}
	var warnings []Warning
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, csvParseError(err)
		}
		line, _ := reader.FieldPos(0)

		mismatch := len(row) != cols.width
		msg := fmt.Sprintf("expected %d fields, got %d", cols.width, len(row))
		if mismatch && opts.Strict {
			return nil, nil, records.NewParseError(msg, nil).WithLine(line)
		}

		if allEmpty(row) {
			warnings = append(warnings, Warning{Line: line, Message: "empty row skipped", Skipped: true})
			continue
		}

		if mismatch {
			if len(row) < cols.width {
				msg += ", missing fields left empty"
			} else {
				msg += ", extra fields dropped"
			}
			warnings = append(warnings, Warning{Line: line, Message: msg})
		}

		drafts = append(drafts, Draft{
			Line:        line,
			Name:        field(row, cols.name),
			Description: field(row, cols.description),
		})
	}

	return drafts, warnings, nil
}

func csvParseError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return records.NewParseError(pe.Err.Error(), err).WithLine(pe.Line)
	}
	return records.NewParseError("failed to read input", err)
}

// Creator is the part of the record service the importer drives.
type Creator interface {
	Create(ctx context.Context, name, description string) (records.Record, error)
}

// ImportResult summarizes one import run.
type ImportResult struct {
	BatchID  string
	Inserted int
	Skipped  int
	Warnings []Warning
}

// Importer feeds parsed drafts to the record service one at a time.
type Importer struct {
	svc  Creator
	tel  *telemetry.Telemetry
	opts ParseOptions
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithStrict sets strict field count handling.
func WithStrict(strict bool) ImporterOption {
	return func(i *Importer) {
		i.opts.Strict = strict
	}
}

// WithTelemetry instruments each import run.
func WithTelemetry(tel *telemetry.Telemetry) ImporterOption {
	return func(i *Importer) {
		i.tel = tel
	}
}

// NewImporter creates an importer over the given service.
func NewImporter(svc Creator, opts ...ImporterOption) *Importer {
	i := &Importer{svc: svc}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import parses the whole document, then creates one record per draft in
// document order. Parse failures insert nothing. A store failure stops the
// run; the result still reports how many rows were written before it.
func (i *Importer) Import(ctx context.Context, r io.Reader) (res *ImportResult, err error) {
	res = &ImportResult{BatchID: uuid.NewString()}

	op := i.tel.StartOperation(ctx, "csvio.import", telemetry.AttrBatchID.String(res.BatchID))
	logger := op.Logger.WithBatchID(res.BatchID)
	defer func() {
		op.Metrics().RecordImportRows("inserted", res.Inserted)
		op.Metrics().RecordImportRows("skipped", res.Skipped)
		op.End(err)
	}()

	drafts, warnings, err := Parse(r, i.opts)
	if err != nil {
		return res, err
	}
	res.Warnings = warnings
	for _, w := range warnings {
		logger.Warn(w.String())
		if op.Span != nil {
			telemetry.AddEvent(op.Span, "csvio.warning",
				attribute.Int("line", w.Line),
				attribute.Bool("skipped", w.Skipped))
		}
		if w.Skipped {
			res.Skipped++
		}
	}

	for _, d := range drafts {
		if err := op.Ctx.Err(); err != nil {
			return res, err
		}
		rec, err := i.svc.Create(op.Ctx, d.Name, d.Description)
		if err != nil {
			logger.WithError(err).WithField("line", d.Line).Error("import stopped")
			return res, err
		}
		res.Inserted++
		logger.WithItemID(rec.ID).Debugf("imported line %d", d.Line)
	}

	logger.WithFields(map[string]interface{}{
		"inserted": res.Inserted,
		"skipped":  res.Skipped,
	}).Info("import finished")
	return res, nil
}
