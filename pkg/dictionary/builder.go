package dictionary

import (
	"strings"

	"github.com/olaria/ddlconv/pkg/ddl"
)

// Build reconciles a parsed schema with the columns of a prior configuration.
// Each schema column becomes a row, EXISTING when the prior configuration
// already knows it (matched case-insensitively) and NEW otherwise. Prior
// columns absent from the schema are appended last as REMOVED rows, in the
// order the prior configuration listed them. A nil prior map means a first
// conversion: every row comes out NEW.
func Build(schema *ddl.TableSchema, prior map[string]PriorColumn, priorOrder []string) ([]Row, Stats) {
	rows := make([]Row, 0, len(schema.Columns))
	stats := Stats{}
	inSchema := make(map[string]bool, len(schema.Columns))

	for _, col := range schema.Columns {
		key := strings.ToUpper(col.Name)
		inSchema[key] = true

		row := Row{
			Table:            schema.TableName,
			TableDescription: schema.Description,
			ColumnName:       col.Name,
			OriginalType:     col.RawType,
			DescriptionMF:    col.InlineComment,
			Nullable:         col.Nullable,
		}
		if pc, ok := prior[key]; ok {
			row.RenameTo = pc.RenameTo
			row.OfficialDescription = pc.Description
			stats.Existing++
		} else {
			// Editable default for new columns.
			row.OfficialDescription = col.InlineComment
			stats.New++
		}
		rows = append(rows, row)
	}

	for _, key := range priorOrder {
		if inSchema[strings.ToUpper(key)] {
			continue
		}
		pc := prior[strings.ToUpper(key)]
		rows = append(rows, Row{
			Table:               schema.TableName,
			TableDescription:    schema.Description,
			ColumnName:          key,
			OriginalType:        pc.InputType,
			RenameTo:            pc.RenameTo,
			OfficialDescription: pc.Description,
			Removed:             true,
		})
	}

	stats.Total = len(rows)
	return rows, stats
}

// AutoFill completes the editable fields of NEW rows the way the batch
// pipeline does when no user is in the loop: the target name is the lowercased
// column name and the official description falls back to the mainframe
// description, or a placeholder when the source has none. Rows a prior
// configuration already named are left alone.
func AutoFill(rows []Row) []Row {
	for i := range rows {
		if rows[i].Removed || rows[i].RenameTo != "" {
			continue
		}
		rows[i].RenameTo = strings.ToLower(rows[i].ColumnName)
		if rows[i].OfficialDescription == "" {
			if rows[i].DescriptionMF != "" {
				rows[i].OfficialDescription = rows[i].DescriptionMF
			} else {
				rows[i].OfficialDescription = "No description available"
			}
		}
	}
	return rows
}
