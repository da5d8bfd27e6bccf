// Package ddl extracts table structure from DB2 mainframe CREATE TABLE
// statements. It is not a general SQL parser: it recognizes the subset of the
// dialect used for column declarations, LABEL ON descriptions, and unique
// indexes.
package ddl

import "github.com/olaria/ddlconv/pkg/typemap"

// ColumnDef is one parsed column definition. Immutable after parsing.
type ColumnDef struct {
	Name          string              `json:"name"`
	RawType       string              `json:"rawType"`
	Logical       typemap.LogicalType `json:"-"`
	LogicalString string              `json:"logicalType"`
	Nullable      bool                `json:"nullable"`
	InlineComment string              `json:"inlineComment,omitempty"`
}

// UniqueIndex is a CREATE UNIQUE INDEX declaration covering the table. The
// first unique index supplies the table key of the emitted configuration.
type UniqueIndex struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// TableSchema is the parsed structure of a single CREATE TABLE statement.
// Column order matches declaration order in the source text; downstream
// consumers align columns positionally, so the order is load-bearing.
type TableSchema struct {
	TableName     string        `json:"tableName"`
	Description   string        `json:"description,omitempty"`
	Columns       []ColumnDef   `json:"columns"`
	UniqueIndexes []UniqueIndex `json:"uniqueIndexes,omitempty"`
}

// ParseError reports DDL text that could not be interpreted. Line carries the
// offending input line when one is identifiable.
type ParseError struct {
	Msg  string
	Line string
}

func (e *ParseError) Error() string {
	if e.Line != "" {
		return "ddl: " + e.Msg + " (near " + e.Line + ")"
	}
	return "ddl: " + e.Msg
}
