// Package typemap translates DB2 mainframe column types into the normalized
// logical type system consumed by downstream pipeline configurations.
package typemap

import (
	"fmt"
	"strconv"
	"strings"
)

type Kind string

const (
	KindString    Kind = "string"
	KindInteger   Kind = "integer"
	KindDecimal   Kind = "decimal"
	KindDate      Kind = "date"
	KindTimestamp Kind = "timestamp"
)

// LogicalType is the normalized, pipeline-facing type of a column. Precision
// and scale are only meaningful for KindDecimal.
type LogicalType struct {
	Kind      Kind
	Precision int
	Scale     int
}

func (t LogicalType) String() string {
	if t.Kind == KindDecimal {
		return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
	}
	return string(t.Kind)
}

// UnknownTypeError is returned when a mainframe type token is outside the
// supported mapping table.
type UnknownTypeError struct {
	Token string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown mainframe type %q", e.Token)
}

// Map translates a raw mainframe type token, optionally parameterized with
// (n) or (p,s), into its logical type. The token is matched
// case-insensitively. A single-parameter DEC(p) carries scale 0.
func Map(raw string) (LogicalType, error) {
	base, params := splitParams(raw)
	if base == "" {
		return LogicalType{}, &UnknownTypeError{Token: raw}
	}

	switch strings.ToUpper(base) {
	case "VARCHAR", "CHAR", "TIME":
		return LogicalType{Kind: KindString}, nil
	case "INTEGER", "INT", "SMALLINT":
		return LogicalType{Kind: KindInteger}, nil
	case "DATE":
		return LogicalType{Kind: KindDate}, nil
	case "TIMESTAMP":
		return LogicalType{Kind: KindTimestamp}, nil
	case "DEC", "DECIMAL", "NUMERIC":
		p, s, err := parseDecimalParams(params)
		if err != nil {
			return LogicalType{}, &UnknownTypeError{Token: strings.TrimSpace(raw)}
		}
		return LogicalType{Kind: KindDecimal, Precision: p, Scale: s}, nil
	}
	return LogicalType{}, &UnknownTypeError{Token: strings.TrimSpace(raw)}
}

// splitParams separates "DEC(10,2)" into "DEC" and "10,2". A token without a
// parameter list yields empty params.
func splitParams(raw string) (base, params string) {
	raw = strings.TrimSpace(raw)
	open := strings.IndexByte(raw, '(')
	if open < 0 {
		return raw, ""
	}
	close := strings.LastIndexByte(raw, ')')
	if close < open {
		return "", ""
	}
	return strings.TrimSpace(raw[:open]), raw[open+1 : close]
}

func parseDecimalParams(params string) (precision, scale int, err error) {
	if strings.TrimSpace(params) == "" {
		return 0, 0, fmt.Errorf("missing decimal precision")
	}
	parts := strings.SplitN(params, ",", 2)
	precision, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid decimal precision %q", parts[0])
	}
	if len(parts) == 2 {
		scale, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return 0, 0, fmt.Errorf("invalid decimal scale %q", parts[1])
		}
	}
	return precision, scale, nil
}
