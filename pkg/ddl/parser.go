package ddl

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/olaria/ddlconv/pkg/typemap"
)

var (
	createTableRe = regexp.MustCompile(`(?i)CREATE\s+TABLE\s+(?:(\w+)\.)?(\w+)`)
	identifierRe  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	notNullRe     = regexp.MustCompile(`(?i)\bNOT\s+NULL\b`)

	// Mainframe card decks prefix lines with a 6-digit sequence number.
	sequenceNumberRe = regexp.MustCompile(`(?m)^[ \t]*\d{6}[ \t]+`)
)

// Clauses opening with one of these are table-level constraints, not columns.
var constraintKeywords = map[string]bool{
	"PRIMARY":    true,
	"FOREIGN":    true,
	"UNIQUE":     true,
	"CONSTRAINT": true,
	"CHECK":      true,
	"KEY":        true,
}

// Tokens that end the raw type portion of a column clause.
var typeTerminators = map[string]bool{
	"NOT":        true,
	"NULL":       true,
	"WITH":       true,
	"DEFAULT":    true,
	"PRIMARY":    true,
	"UNIQUE":     true,
	"REFERENCES": true,
	"CHECK":      true,
	"CONSTRAINT": true,
	"GENERATED":  true,
	"FOR":        true,
}

// Parse extracts the table schema from raw DDL text. The schema qualifier of
// the CREATE TABLE identifier is dropped and the table name uppercased.
// Column order in the result matches declaration order in the input.
func Parse(text string) (*TableSchema, error) {
	text = sequenceNumberRe.ReplaceAllString(text, "")

	loc := createTableRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil, &ParseError{Msg: "no CREATE TABLE statement found"}
	}
	tableName := strings.ToUpper(text[loc[4]:loc[5]])

	body, err := columnListBody(text, loc[1])
	if err != nil {
		return nil, err
	}

	labels := extractColumnLabels(text, tableName)

	schema := &TableSchema{
		TableName:     tableName,
		Description:   extractTableDescription(text, tableName),
		UniqueIndexes: extractUniqueIndexes(text, tableName),
	}

	seen := make(map[string]bool)
	for _, clause := range splitClauses(body) {
		col, ok, err := parseColumnClause(clause)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		key := strings.ToUpper(col.Name)
		if seen[key] {
			return nil, &ParseError{Msg: fmt.Sprintf("duplicate column %s", col.Name), Line: clause.text}
		}
		seen[key] = true
		if desc, ok := labels[key]; ok {
			col.InlineComment = desc
		}
		schema.Columns = append(schema.Columns, *col)
	}

	if len(schema.Columns) == 0 {
		return nil, &ParseError{Msg: fmt.Sprintf("table %s has no column definitions", tableName)}
	}
	return schema, nil
}

// columnListBody returns the text between the parenthesis that opens the
// column list and its matching close, scanning from offset.
func columnListBody(text string, offset int) (string, error) {
	i := offset
	for i < len(text) && (text[i] == ' ' || text[i] == '\t' || text[i] == '\n' || text[i] == '\r') {
		i++
	}
	if i >= len(text) || text[i] != '(' {
		return "", &ParseError{Msg: "CREATE TABLE is missing its column list"}
	}
	depth := 1
	for j := i + 1; j < len(text); j++ {
		switch text[j] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return text[i+1 : j], nil
			}
		}
	}
	return "", &ParseError{Msg: "unterminated column list"}
}

type rawClause struct {
	text    string
	comment string
}

// splitClauses splits the column-list body on top-level commas. Commas nested
// inside a type's own parentheses, such as DEC(10,2), do not split. Trailing
// "--" comments are captured per clause and stripped from the text.
func splitClauses(body string) []rawClause {
	var clauses []rawClause
	var cur strings.Builder
	var comment string

	flush := func() {
		text := strings.TrimSpace(cur.String())
		if text != "" || comment != "" {
			clauses = append(clauses, rawClause{text: text, comment: comment})
		}
		cur.Reset()
		comment = ""
	}

	depth := 0
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '-' && i+1 < len(body) && body[i+1] == '-' {
			var text string
			end := strings.IndexByte(body[i:], '\n')
			if end < 0 {
				text = strings.TrimSpace(body[i+2:])
				i = len(body) - 1
			} else {
				text = strings.TrimSpace(body[i+2 : i+end])
				i += end - 1
			}
			// A comment after the clause's comma ("COL TYPE, -- desc")
			// belongs to the clause just flushed, not the next one.
			last := len(clauses) - 1
			if strings.TrimSpace(cur.String()) == "" && last >= 0 && clauses[last].comment == "" {
				clauses[last].comment = text
			} else {
				comment = text
			}
			continue
		}
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				flush()
				continue
			}
		}
		cur.WriteByte(c)
	}
	flush()
	return clauses
}

// parseColumnClause tokenizes one clause into a column definition. Constraint
// clauses report ok=false and are skipped.
func parseColumnClause(clause rawClause) (*ColumnDef, bool, error) {
	text := clause.text
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, false, nil
	}
	if constraintKeywords[strings.ToUpper(fields[0])] {
		return nil, false, nil
	}

	name := fields[0]
	if !identifierRe.MatchString(name) {
		return nil, false, &ParseError{Msg: fmt.Sprintf("invalid column name %q", name), Line: clause.text}
	}

	var typeTokens []string
	for _, tok := range fields[1:] {
		if typeTerminators[strings.ToUpper(tok)] {
			break
		}
		typeTokens = append(typeTokens, tok)
	}
	if len(typeTokens) == 0 {
		return nil, false, &ParseError{Msg: fmt.Sprintf("column %s has no type", name), Line: clause.text}
	}
	rawType := strings.Join(typeTokens, " ")

	logical, err := typemap.Map(rawType)
	if err != nil {
		return nil, false, fmt.Errorf("column %s: %w", name, err)
	}

	return &ColumnDef{
		Name:          name,
		RawType:       rawType,
		Logical:       logical,
		LogicalString: logical.String(),
		Nullable:      !notNullRe.MatchString(text),
		InlineComment: clause.comment,
	}, true, nil
}
