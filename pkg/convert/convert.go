// Package convert wires the parsing, dictionary, and emission stages into
// the pipeline the HTTP and CLI layers call.
package convert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/olaria/ddlconv/pkg/artifact"
	"github.com/olaria/ddlconv/pkg/batch"
	"github.com/olaria/ddlconv/pkg/ddl"
	"github.com/olaria/ddlconv/pkg/dictionary"
	"github.com/olaria/ddlconv/pkg/metrics"
	"github.com/olaria/ddlconv/pkg/mlops"
)

type Config struct {
	Logger    *slog.Logger
	Clock     clockwork.Clock
	Artifacts artifact.Store
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.Artifacts == nil {
		return fmt.Errorf("artifact store is required")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Pipeline converts DDL text into the dictionary and configuration
// artifacts. Safe for concurrent use.
type Pipeline struct {
	log       *slog.Logger
	clock     clockwork.Clock
	artifacts artifact.Store
	emitter   *mlops.Emitter
}

func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate convert config: %w", err)
	}
	emitter, err := mlops.NewEmitter(mlops.EmitterConfig{Logger: cfg.Logger, Clock: cfg.Clock})
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		log:       cfg.Logger,
		clock:     cfg.Clock,
		artifacts: cfg.Artifacts,
		emitter:   emitter,
	}, nil
}

// ConvertResult is the editable intermediate state handed to the review
// step: the parsed schema plus the dictionary diffed against the prior
// configuration, when one was supplied.
type ConvertResult struct {
	Schema      *ddl.TableSchema `json:"schema"`
	Rows        []dictionary.Row `json:"rows"`
	Stats       dictionary.Stats `json:"stats"`
	TableKey    []string         `json:"tableKey"`
	AuditFields []mlops.Field    `json:"-"`
}

// ParseAndConvert parses DDL text and builds the dictionary. priorConfig is
// an optional previously emitted configuration document; when present the
// dictionary carries its names and descriptions forward and marks vanished
// columns as removed.
func (p *Pipeline) ParseAndConvert(text string, priorConfig []byte) (*ConvertResult, error) {
	schema, err := ddl.Parse(text)
	if err != nil {
		return nil, err
	}

	var prior map[string]dictionary.PriorColumn
	var priorOrder []string
	var audit []mlops.Field
	if len(priorConfig) > 0 {
		record, err := mlops.ParseConfig(priorConfig)
		if err != nil {
			return nil, fmt.Errorf("convert: read prior config: %w", err)
		}
		prior, priorOrder = record.PriorColumns()
		audit = record.AuditFields()
	}

	rows, stats := dictionary.Build(schema, prior, priorOrder)

	result := &ConvertResult{
		Schema:      schema,
		Rows:        rows,
		Stats:       stats,
		TableKey:    tableKey(schema),
		AuditFields: audit,
	}
	p.log.Debug(fmt.Sprintf("convert: parsed %s", schema.TableName),
		"columns", len(schema.Columns), "new", stats.New, "existing", stats.Existing)
	return result, nil
}

// FinalizeResult carries the emitted artifacts and where they were saved.
type FinalizeResult struct {
	Record         *mlops.ConfigRecord
	ConfigJSON     []byte
	DictionaryCSV  []byte
	ConfigPath     string
	DictionaryPath string
}

// Finalize validates the edited dictionary, emits the configuration record,
// and persists both artifacts. audit lists the AUD_ fields to append,
// normally carried forward from the prior configuration.
func (p *Pipeline) Finalize(tableName string, rows []dictionary.Row, key []string, audit []mlops.Field) (*FinalizeResult, error) {
	record, err := p.emitter.Emit(tableName, rows, key, audit)
	if err != nil {
		return nil, err
	}

	configJSON, err := record.Encode()
	if err != nil {
		return nil, err
	}
	dictCSV, err := dictionary.EncodeCSV(rows)
	if err != nil {
		return nil, err
	}

	dictPath, err := p.artifacts.SaveDictionary(tableName, dictCSV)
	if err != nil {
		return nil, err
	}
	configPath, err := p.artifacts.SaveConfig(tableName, configJSON)
	if err != nil {
		return nil, err
	}

	p.log.Info(fmt.Sprintf("convert: finalized %s", tableName),
		"dictionary", dictPath, "config", configPath)
	return &FinalizeResult{
		Record:         record,
		ConfigJSON:     configJSON,
		DictionaryCSV:  dictCSV,
		ConfigPath:     configPath,
		DictionaryPath: dictPath,
	}, nil
}

// Process runs the unattended batch path for one file: parse, auto-fill the
// dictionary, emit with the standard audit fields, persist. Implements
// batch.Processor.
func (p *Pipeline) Process(ctx context.Context, name string, data []byte) (batch.Result, error) {
	if err := ctx.Err(); err != nil {
		return batch.Result{}, err
	}
	start := p.clock.Now()

	result, err := p.convertFile(string(data))
	metrics.ConversionDuration.Observe(p.clock.Since(start).Seconds())
	if err != nil {
		metrics.ConversionsTotal.WithLabelValues("error").Inc()
		return batch.Result{}, fmt.Errorf("%s: %w", name, err)
	}
	metrics.ConversionsTotal.WithLabelValues("ok").Inc()

	result.File = name
	return result, nil
}

func (p *Pipeline) convertFile(text string) (batch.Result, error) {
	conv, err := p.ParseAndConvert(text, nil)
	if err != nil {
		return batch.Result{}, err
	}

	rows := dictionary.AutoFill(conv.Rows)
	fin, err := p.Finalize(conv.Schema.TableName, rows, conv.TableKey, mlops.DefaultAuditFields())
	if err != nil {
		return batch.Result{}, err
	}

	return batch.Result{
		TableName:      conv.Schema.TableName,
		ColumnCount:    fin.Record.Table.ColumnCount,
		DictionaryPath: fin.DictionaryPath,
		ConfigPath:     fin.ConfigPath,
	}, nil
}

// tableKey derives the configuration key columns from the table's first
// unique index.
func tableKey(schema *ddl.TableSchema) []string {
	if len(schema.UniqueIndexes) == 0 {
		return []string{}
	}
	return schema.UniqueIndexes[0].Columns
}
