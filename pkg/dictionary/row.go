// Package dictionary reconciles a parsed table schema against a prior
// pipeline configuration and produces the editable column dictionary that
// analysts review before a configuration is emitted.
package dictionary

// Status classifies a dictionary row relative to the prior configuration.
type Status string

const (
	StatusNew      Status = "NEW"
	StatusExisting Status = "EXISTING"
	StatusRemoved  Status = "REMOVED"
)

// Row is one editable dictionary record per column. RenameTo and
// OfficialDescription are filled in by the user (or auto-filled in batch
// mode) before emission.
type Row struct {
	Table               string `json:"table"`
	TableDescription    string `json:"tableDescription"`
	ColumnName          string `json:"columnName"`
	OriginalType        string `json:"originalType"`
	RenameTo            string `json:"renameTo"`
	DescriptionMF       string `json:"descriptionMF"`
	OfficialDescription string `json:"officialDescription"`
	Nullable            bool   `json:"nullable"`
	Removed             bool   `json:"removed,omitempty"`
}

// Status is derived, never stored: a removed row is REMOVED, a row without a
// target name is NEW, everything else is EXISTING.
func (r Row) Status() Status {
	switch {
	case r.Removed:
		return StatusRemoved
	case r.RenameTo == "":
		return StatusNew
	default:
		return StatusExisting
	}
}

// PriorColumn is the slice of a prior configuration the builder needs for
// diffing, keyed by uppercased original column name.
type PriorColumn struct {
	RenameTo    string
	Description string
	InputType   string
}

// Stats summarizes a build for the user-facing review step.
type Stats struct {
	Total    int `json:"total"`
	New      int `json:"new"`
	Existing int `json:"existing"`
}
