package csvio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/itemdesk/itemdesk/pkg/records"
)

// Header is the first line of every exported document.
var Header = []string{"id", "name", "description"}

// WriteCSV writes the header and one line per record. Lines end in LF so
// carriage returns inside fields are written unchanged.
func WriteCSV(w io.Writer, recs []records.Record) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, rec := range recs {
		row := []string{strconv.FormatInt(rec.ID, 10), rec.Name, rec.Description}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", rec.ID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// ExportCSV serializes records to a CSV document in memory.
func ExportCSV(recs []records.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, recs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
