package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/olaria/ddlconv/pkg/artifact"
	"github.com/olaria/ddlconv/pkg/convert"
	"github.com/olaria/ddlconv/pkg/dictionary"
)

var dictPriorPath string

var dictCmd = &cobra.Command{
	Use:   "dict <ddl-file>",
	Short: "Build the editable column dictionary for one DDL file",
	Long: `Parses a DDL file and writes the semicolon-separated dictionary CSV for
manual completion. With --prior, names and descriptions from a previously
generated configuration are carried forward and columns that vanished from
the DDL are annotated as removed.

Fill in the rename_to and official_description columns, then run
"ddlconv generate" on the result.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read ddl file: %w", err)
		}
		var prior []byte
		if dictPriorPath != "" {
			prior, err = os.ReadFile(dictPriorPath)
			if err != nil {
				return fmt.Errorf("read prior config: %w", err)
			}
		}

		store, err := artifact.NewFSStore(outputDir)
		if err != nil {
			return err
		}
		pipeline, err := convert.New(convert.Config{Logger: log, Artifacts: store})
		if err != nil {
			return err
		}

		conv, err := pipeline.ParseAndConvert(string(text), prior)
		if err != nil {
			return err
		}

		csvData, err := dictionary.EncodeCSV(conv.Rows)
		if err != nil {
			return err
		}
		path, err := store.SaveDictionary(conv.Schema.TableName, csvData)
		if err != nil {
			return err
		}

		fmt.Printf("Table: %s (%d columns)\n", conv.Schema.TableName, len(conv.Schema.Columns))
		fmt.Printf("Dictionary: %d rows (%d new, %d existing)\n",
			conv.Stats.Total, conv.Stats.New, conv.Stats.Existing)
		fmt.Printf("Written to: %s\n", path)
		return nil
	},
}

func init() {
	dictCmd.Flags().StringVar(&dictPriorPath, "prior", "", "previously generated config JSON to diff against")
	rootCmd.AddCommand(dictCmd)
}
