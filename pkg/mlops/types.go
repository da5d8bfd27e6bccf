// Package mlops emits and parses the pipeline configuration record that
// downstream ingestion jobs consume. The JSON layout is a contract with those
// jobs and must be emitted byte-for-byte stably.
package mlops

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/olaria/ddlconv/pkg/dictionary"
)

// Curation is a post-ingestion transformation applied to a field on the
// stages listed in RunOn.
type Curation struct {
	Name  string   `json:"name"`
	Input string   `json:"input"`
	RunOn []string `json:"runOn"`
}

// FieldMetadata carries the per-field mapping between the mainframe source
// and the normalized output.
type FieldMetadata struct {
	Description       string     `json:"description"`
	InputType         string     `json:"inputType"`
	OutputType        string     `json:"outputType"`
	RenameTo          string     `json:"renameTo"`
	JSONParameterName string     `json:"jsonParameterName"`
	Curations         []Curation `json:"curations,omitempty"`
}

// Field is one entry of the structure's field list.
type Field struct {
	Name     string        `json:"name"`
	Type     string        `json:"type"`
	Nullable bool          `json:"nullable"`
	Metadata FieldMetadata `json:"metadata"`
}

// Structure is the schema block of a table configuration.
type Structure struct {
	Type   string  `json:"type"`
	Fields []Field `json:"fields"`
}

// TableConfig is the per-table body of the configuration record.
type TableConfig struct {
	Delimiter   string    `json:"delimiter"`
	Format      string    `json:"format"`
	GeneratedAt string    `json:"generatedAt"`
	ColumnCount int       `json:"columnCount"`
	TableKey    []string  `json:"tableKey"`
	Structure   Structure `json:"structure"`
}

// ConfigRecord is a complete configuration document: a single table name
// mapped to its configuration. The table name is the top-level JSON key, so
// (un)marshaling is custom.
type ConfigRecord struct {
	TableName string
	Table     TableConfig
}

func (r *ConfigRecord) MarshalJSON() ([]byte, error) {
	if r.TableName == "" {
		return nil, fmt.Errorf("mlops: config record has no table name")
	}
	return json.Marshal(map[string]TableConfig{r.TableName: r.Table})
}

func (r *ConfigRecord) UnmarshalJSON(data []byte) error {
	var doc map[string]TableConfig
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("mlops: parse config: %w", err)
	}
	if len(doc) != 1 {
		return fmt.Errorf("mlops: config must describe exactly one table, found %d", len(doc))
	}
	for name, table := range doc {
		r.TableName = name
		r.Table = table
	}
	return nil
}

// Encode renders the record in the wire layout the downstream pipelines
// expect: 4-space indent, no HTML escaping, trailing newline.
func (r *ConfigRecord) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("mlops: encode config for %s: %w", r.TableName, err)
	}
	return buf.Bytes(), nil
}

// ParseConfig reads a previously emitted configuration document.
func ParseConfig(data []byte) (*ConfigRecord, error) {
	var r ConfigRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

const auditPrefix = "AUD_"

// AuditFields returns the record's audit fields, which are carried forward
// verbatim when a table is reconverted.
func (r *ConfigRecord) AuditFields() []Field {
	var audit []Field
	for _, f := range r.Table.Structure.Fields {
		if strings.HasPrefix(f.Name, auditPrefix) {
			audit = append(audit, f)
		}
	}
	return audit
}

// PriorColumns projects the record's non-audit fields into the shape the
// dictionary builder diffs against, plus the field order for stable REMOVED
// placement.
func (r *ConfigRecord) PriorColumns() (map[string]dictionary.PriorColumn, []string) {
	prior := make(map[string]dictionary.PriorColumn)
	var order []string
	for _, f := range r.Table.Structure.Fields {
		if strings.HasPrefix(f.Name, auditPrefix) {
			continue
		}
		prior[strings.ToUpper(f.Name)] = dictionary.PriorColumn{
			RenameTo:    f.Metadata.RenameTo,
			Description: f.Metadata.Description,
			InputType:   f.Metadata.InputType,
		}
		order = append(order, f.Name)
	}
	return prior, order
}

// DefaultAuditFields is the standard pair of change-data-capture fields the
// batch pipeline appends when no prior configuration supplies them.
func DefaultAuditFields() []Field {
	return []Field{
		{
			Name:     "AUD_ENTTYP",
			Type:     "string",
			Nullable: false,
			Metadata: FieldMetadata{
				Description:       "Change event type observed on the source table",
				InputType:         "string",
				OutputType:        "string",
				RenameTo:          "co_aud_enttyp",
				JSONParameterName: "string",
			},
		},
		{
			Name:     "AUD_APPLY_TIMESTAMP",
			Type:     "timestamp",
			Nullable: false,
			Metadata: FieldMetadata{
				Description:       "Timestamp at which the change was applied on the source table",
				InputType:         "string",
				OutputType:        "timestamp",
				RenameTo:          "ts_aud_apply",
				JSONParameterName: "string",
			},
		},
	}
}
