package dictionary

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

var csvHeader = []string{
	"table",
	"table_description",
	"column_mf",
	"original_type",
	"rename_to",
	"description_mf",
	"official_description",
	"status",
}

// EncodeCSV renders rows as the semicolon-separated dictionary artifact.
// Removed columns keep their clean name in memory; the artifact annotates
// them so a reader scanning the file sees the removal without checking the
// status column.
func EncodeCSV(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write dictionary header: %w", err)
	}
	for _, row := range rows {
		name := row.ColumnName
		if row.Removed {
			name += removedMarker
		}
		record := []string{
			row.Table,
			row.TableDescription,
			name,
			row.OriginalType,
			row.RenameTo,
			row.DescriptionMF,
			row.OfficialDescription,
			string(row.Status()),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write dictionary row %s: %w", row.ColumnName, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush dictionary csv: %w", err)
	}
	return buf.Bytes(), nil
}

const removedMarker = " [REMOVED]"

// DecodeCSV reads a dictionary artifact back, typically after manual editing.
// The status column is ignored: status is derived from the row contents, and
// the removal annotation on the column name is folded back into the Removed
// flag.
func DecodeCSV(data []byte) ([]Row, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = ';'
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dictionary csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dictionary csv is empty")
	}
	if len(records[0]) != len(csvHeader) {
		return nil, fmt.Errorf("dictionary csv has %d columns, want %d", len(records[0]), len(csvHeader))
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		name := rec[2]
		removed := strings.HasSuffix(name, removedMarker)
		if removed {
			name = strings.TrimSuffix(name, removedMarker)
		}
		rows = append(rows, Row{
			Table:               rec[0],
			TableDescription:    rec[1],
			ColumnName:          name,
			OriginalType:        rec[3],
			RenameTo:            strings.TrimSpace(rec[4]),
			DescriptionMF:       rec[5],
			OfficialDescription: strings.TrimSpace(rec[6]),
			// The artifact does not carry nullability; callers overlay it
			// from the parsed schema when they have one.
			Nullable: true,
			Removed:  removed,
		})
	}
	return rows, nil
}
