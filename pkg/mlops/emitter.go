package mlops

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/olaria/ddlconv/pkg/dictionary"
	"github.com/olaria/ddlconv/pkg/typemap"
)

// ValidationError reports a dictionary that is not ready for emission. It is
// surfaced to the editor, never swallowed.
type ValidationError struct {
	Column string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("mlops: column %s: %s", e.Column, e.Reason)
}

type EmitterConfig struct {
	Logger *slog.Logger
	Clock  clockwork.Clock
}

func (c *EmitterConfig) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Emitter turns a completed dictionary into a configuration record.
type Emitter struct {
	log   *slog.Logger
	clock clockwork.Clock
}

func NewEmitter(cfg EmitterConfig) (*Emitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate emitter config: %w", err)
	}
	return &Emitter{log: cfg.Logger, clock: cfg.Clock}, nil
}

// Emit validates the dictionary and produces the configuration record.
// Removed rows are excluded. Every retained row needs a target name, and
// target names must be unique ignoring case. tableKey lists the key columns
// (from the table's first unique index) and audit carries the AUD_ fields to
// append after the schema columns.
func (e *Emitter) Emit(tableName string, rows []dictionary.Row, tableKey []string, audit []Field) (*ConfigRecord, error) {
	if tableName == "" {
		return nil, fmt.Errorf("mlops: table name is required")
	}

	if err := validateRows(rows); err != nil {
		return nil, err
	}

	fields := make([]Field, 0, len(rows)+len(audit))
	for _, row := range rows {
		if row.Removed {
			continue
		}
		f, err := buildField(row)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	columnCount := len(fields)
	fields = append(fields, audit...)

	if tableKey == nil {
		tableKey = []string{}
	}

	record := &ConfigRecord{
		TableName: tableName,
		Table: TableConfig{
			Delimiter:   "|",
			Format:      "csv",
			GeneratedAt: e.clock.Now().UTC().Format(time.RFC3339),
			ColumnCount: columnCount,
			TableKey:    tableKey,
			Structure:   Structure{Type: "struct", Fields: fields},
		},
	}

	e.log.Debug(fmt.Sprintf("mlops: emitted config for %s", tableName),
		"columns", columnCount, "auditFields", len(audit))
	return record, nil
}

func validateRows(rows []dictionary.Row) error {
	seen := make(map[string]string)
	for _, row := range rows {
		if row.Removed {
			continue
		}
		if strings.TrimSpace(row.RenameTo) == "" {
			return &ValidationError{Column: row.ColumnName, Reason: "target name is empty"}
		}
		key := strings.ToLower(row.RenameTo)
		if other, ok := seen[key]; ok {
			return &ValidationError{
				Column: row.ColumnName,
				Reason: fmt.Sprintf("target name %q collides with column %s", row.RenameTo, other),
			}
		}
		seen[key] = row.ColumnName
	}
	return nil
}

func buildField(row dictionary.Row) (Field, error) {
	logical, err := typemap.Map(row.OriginalType)
	if err != nil {
		return Field{}, fmt.Errorf("column %s: %w", row.ColumnName, err)
	}

	paramName := "string"
	if logical.Kind == typemap.KindInteger {
		paramName = "int"
	}

	return Field{
		Name:     row.ColumnName,
		Type:     logical.String(),
		Nullable: row.Nullable,
		Metadata: FieldMetadata{
			Description:       row.OfficialDescription,
			InputType:         row.OriginalType,
			OutputType:        logical.String(),
			RenameTo:          row.RenameTo,
			JSONParameterName: paramName,
			Curations:         curationsFor(logical.Kind),
		},
	}, nil
}

// curationsFor yields the standard transformations the ingestion stages run
// for a source type: integers arrive as strings and are cast back, and dates
// arrive in dd.MM.yyyy form.
func curationsFor(kind typemap.Kind) []Curation {
	switch kind {
	case typemap.KindInteger:
		return []Curation{{Name: "StringToType", Input: "integer", RunOn: []string{"kafka", "unload"}}}
	case typemap.KindDate:
		return []Curation{{Name: "StringToDate", Input: "dd.MM.yyyy", RunOn: []string{"unload"}}}
	default:
		return nil
	}
}
