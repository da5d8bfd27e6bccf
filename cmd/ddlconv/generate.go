package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/olaria/ddlconv/pkg/artifact"
	"github.com/olaria/ddlconv/pkg/convert"
	"github.com/olaria/ddlconv/pkg/ddl"
	"github.com/olaria/ddlconv/pkg/dictionary"
	"github.com/olaria/ddlconv/pkg/mlops"
)

var (
	generateDDLPath   string
	generatePriorPath string
)

var generateCmd = &cobra.Command{
	Use:   "generate <filled-csv>",
	Short: "Generate the configuration JSON from a filled dictionary",
	Long: `Reads a dictionary CSV completed by hand and emits the configuration
record. With --ddl, the table key and column nullability are taken from the
original DDL; with --prior, audit fields are carried forward from the
previous configuration instead of using the defaults.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		csvData, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read dictionary csv: %w", err)
		}
		rows, err := dictionary.DecodeCSV(csvData)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("dictionary has no rows")
		}
		tableName := rows[0].Table
		if tableName == "" {
			return fmt.Errorf("dictionary rows carry no table name")
		}

		var key []string
		if generateDDLPath != "" {
			text, err := os.ReadFile(generateDDLPath)
			if err != nil {
				return fmt.Errorf("read ddl file: %w", err)
			}
			schema, err := ddl.Parse(string(text))
			if err != nil {
				return err
			}
			if len(schema.UniqueIndexes) > 0 {
				key = schema.UniqueIndexes[0].Columns
			}
			overlayNullability(rows, schema)
		}

		audit := mlops.DefaultAuditFields()
		if generatePriorPath != "" {
			prior, err := os.ReadFile(generatePriorPath)
			if err != nil {
				return fmt.Errorf("read prior config: %w", err)
			}
			record, err := mlops.ParseConfig(prior)
			if err != nil {
				return err
			}
			audit = record.AuditFields()
		}

		store, err := artifact.NewFSStore(outputDir)
		if err != nil {
			return err
		}
		pipeline, err := convert.New(convert.Config{Logger: log, Artifacts: store})
		if err != nil {
			return err
		}

		fin, err := pipeline.Finalize(tableName, rows, key, audit)
		if err != nil {
			return err
		}

		fmt.Printf("Table: %s (%d columns)\n", tableName, fin.Record.Table.ColumnCount)
		fmt.Printf("Config: %s\n", fin.ConfigPath)
		fmt.Printf("Dictionary: %s\n", fin.DictionaryPath)
		return nil
	},
}

// overlayNullability copies NOT NULL information from the parsed schema onto
// decoded rows, which the CSV artifact does not carry.
func overlayNullability(rows []dictionary.Row, schema *ddl.TableSchema) {
	nullable := make(map[string]bool, len(schema.Columns))
	for _, col := range schema.Columns {
		nullable[strings.ToUpper(col.Name)] = col.Nullable
	}
	for i := range rows {
		if n, ok := nullable[strings.ToUpper(rows[i].ColumnName)]; ok {
			rows[i].Nullable = n
		}
	}
}

func init() {
	generateCmd.Flags().StringVar(&generateDDLPath, "ddl", "", "original DDL file, used for table key and nullability")
	generateCmd.Flags().StringVar(&generatePriorPath, "prior", "", "previous config JSON whose audit fields are carried forward")
	rootCmd.AddCommand(generateCmd)
}
