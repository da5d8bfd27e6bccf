package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"

	"github.com/olaria/ddlconv/pkg/artifact"
	"github.com/olaria/ddlconv/pkg/convert"
	"github.com/olaria/ddlconv/pkg/dedup"
)

var convertCmd = &cobra.Command{
	Use:   "convert <ddl-dir>",
	Short: "Convert every DDL file in a directory, unattended",
	Long: `Scans a directory for .txt and .ddl files and runs the full pipeline on
each: parse, auto-fill the dictionary, emit the configuration with the
standard audit fields. Byte-identical files are converted once.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := listDDLFiles(args[0])
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no .txt or .ddl files in %s", args[0])
		}

		store, err := artifact.NewFSStore(outputDir)
		if err != nil {
			return err
		}
		pipeline, err := convert.New(convert.Config{Logger: log, Artifacts: store})
		if err != nil {
			return err
		}
		dedupStore := dedup.NewMemoryStore(nil)

		type outcome struct {
			file    string
			table   string
			columns int
			skipped bool
			err     error
		}

		start := time.Now()
		uiprogress.Start()
		bar := uiprogress.AddBar(len(files)).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return "Converting: "
		})

		var outcomes []outcome
		for _, path := range files {
			name := filepath.Base(path)
			data, err := os.ReadFile(path)
			if err != nil {
				outcomes = append(outcomes, outcome{file: name, err: err})
				bar.Incr()
				continue
			}
			if dedupStore.ShouldSkip(data) {
				outcomes = append(outcomes, outcome{file: name, skipped: true})
				bar.Incr()
				continue
			}
			dedupStore.Record(data, name)

			result, err := pipeline.Process(cmd.Context(), name, data)
			if err != nil {
				dedupStore.SetOutcome(data, dedup.OutcomeFailed)
				outcomes = append(outcomes, outcome{file: name, err: err})
			} else {
				dedupStore.SetOutcome(data, dedup.OutcomeConverted)
				outcomes = append(outcomes, outcome{file: name, table: result.TableName, columns: result.ColumnCount})
			}
			bar.Incr()
		}
		uiprogress.Stop()

		fmt.Println("\nSummary Report:")
		converted, failed := 0, 0
		for i, o := range outcomes {
			switch {
			case o.err != nil:
				failed++
				fmt.Printf("[!] [%02d/%02d] %-30s : %v\n", i+1, len(outcomes), o.file, o.err)
			case o.skipped:
				fmt.Printf("[-] [%02d/%02d] %-30s : skipped (duplicate content)\n", i+1, len(outcomes), o.file)
			default:
				converted++
				fmt.Printf("[OK] [%02d/%02d] %-30s : %s (%d columns)\n", i+1, len(outcomes), o.file, o.table, o.columns)
			}
		}
		fmt.Println("--------------------------------------------------")
		fmt.Printf("Converted: %d, Failed: %d, Artifacts in: %s\n", converted, failed, store.Dir())
		fmt.Printf("Done! Time Elapsed: %s\n", time.Since(start).Round(time.Millisecond))

		if failed > 0 {
			return fmt.Errorf("%d file(s) failed to convert", failed)
		}
		return nil
	},
}

func listDDLFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read ddl directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".ddl":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func init() {
	rootCmd.AddCommand(convertCmd)
}
