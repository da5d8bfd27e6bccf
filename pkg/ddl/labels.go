package ddl

import (
	"regexp"
	"strings"
)

// DB2 DDL carries table and column descriptions out-of-line in LABEL ON
// statements rather than inline comments. These are matched over the whole
// input so they may appear before or after the CREATE TABLE statement.

func extractTableDescription(text, tableName string) string {
	re := regexp.MustCompile(`(?i)LABEL\s+ON\s+TABLE\s+(?:\w+\.)?` + regexp.QuoteMeta(tableName) + `\s+IS\s+'([^']*)'`)
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

var labelEntryRe = regexp.MustCompile(`(?i)(\w+)\s+IS\s+'([^']*)'`)

// extractColumnLabels returns column descriptions keyed by uppercased column
// name, from a LABEL ON <table> ( COL IS '...', ... ) block.
func extractColumnLabels(text, tableName string) map[string]string {
	blockRe := regexp.MustCompile(`(?is)LABEL\s+ON\s+(?:\w+\.)?` + regexp.QuoteMeta(tableName) + `\s*\((.+?)\)\s*;`)
	m := blockRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	labels := make(map[string]string)
	for _, entry := range labelEntryRe.FindAllStringSubmatch(m[1], -1) {
		labels[strings.ToUpper(entry[1])] = strings.TrimSpace(entry[2])
	}
	return labels
}

var indexColumnRe = regexp.MustCompile(`(?i)(\w+)(?:\s+(?:ASC|DESC))?`)

func extractUniqueIndexes(text, tableName string) []UniqueIndex {
	re := regexp.MustCompile(`(?is)CREATE\s+UNIQUE\s+INDEX\s+(?:\w+\.)?(\w+)\s+ON\s+(?:\w+\.)?` + regexp.QuoteMeta(tableName) + `\s*\(([^)]+)\)`)

	var indexes []UniqueIndex
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		ix := UniqueIndex{Name: strings.ToUpper(m[1])}
		for _, col := range indexColumnRe.FindAllStringSubmatch(m[2], -1) {
			tok := strings.ToUpper(col[1])
			if tok == "ASC" || tok == "DESC" {
				continue
			}
			ix.Columns = append(ix.Columns, tok)
		}
		indexes = append(indexes, ix)
	}
	return indexes
}
