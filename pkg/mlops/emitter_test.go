package mlops

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/olaria/ddlconv/pkg/dictionary"
)

func testEmitter(t *testing.T) *Emitter {
	t.Helper()
	e, err := NewEmitter(EmitterConfig{
		Logger: testLogger(),
		Clock:  clockwork.NewFakeClockAt(time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	return e
}

func TestDDLConv_MLOps_EmitGolden(t *testing.T) {
	t.Parallel()

	rows := []dictionary.Row{
		{
			Table:               "ACCOUNT",
			ColumnName:          "ACCT_ID",
			OriginalType:        "INTEGER",
			RenameTo:            "acct_id",
			OfficialDescription: "Account identifier",
			Nullable:            false,
		},
		{
			Table:               "ACCOUNT",
			ColumnName:          "OPENED",
			OriginalType:        "DATE",
			RenameTo:            "opened_date",
			OfficialDescription: "Opening date",
			Nullable:            true,
		},
	}

	record, err := testEmitter(t).Emit("ACCOUNT", rows, []string{"ACCT_ID"}, nil)
	require.NoError(t, err)

	out, err := record.Encode()
	require.NoError(t, err)

	want := `{
    "ACCOUNT": {
        "delimiter": "|",
        "format": "csv",
        "generatedAt": "2025-01-15T10:30:00Z",
        "columnCount": 2,
        "tableKey": [
            "ACCT_ID"
        ],
        "structure": {
            "type": "struct",
            "fields": [
                {
                    "name": "ACCT_ID",
                    "type": "integer",
                    "nullable": false,
                    "metadata": {
                        "description": "Account identifier",
                        "inputType": "INTEGER",
                        "outputType": "integer",
                        "renameTo": "acct_id",
                        "jsonParameterName": "int",
                        "curations": [
                            {
                                "name": "StringToType",
                                "input": "integer",
                                "runOn": [
                                    "kafka",
                                    "unload"
                                ]
                            }
                        ]
                    }
                },
                {
                    "name": "OPENED",
                    "type": "date",
                    "nullable": true,
                    "metadata": {
                        "description": "Opening date",
                        "inputType": "DATE",
                        "outputType": "date",
                        "renameTo": "opened_date",
                        "jsonParameterName": "string",
                        "curations": [
                            {
                                "name": "StringToDate",
                                "input": "dd.MM.yyyy",
                                "runOn": [
                                    "unload"
                                ]
                            }
                        ]
                    }
                }
            ]
        }
    }
}
`
	require.Equal(t, want, string(out))
}

func TestDDLConv_MLOps_EmitAppendsAuditFields(t *testing.T) {
	t.Parallel()

	rows := []dictionary.Row{
		{ColumnName: "ID", OriginalType: "INTEGER", RenameTo: "id", Nullable: false},
	}

	record, err := testEmitter(t).Emit("T", rows, nil, DefaultAuditFields())
	require.NoError(t, err)

	require.Equal(t, 1, record.Table.ColumnCount)
	require.Len(t, record.Table.Structure.Fields, 3)
	require.Equal(t, "AUD_ENTTYP", record.Table.Structure.Fields[1].Name)
	require.Equal(t, "AUD_APPLY_TIMESTAMP", record.Table.Structure.Fields[2].Name)
	require.Equal(t, []string{}, record.Table.TableKey)
}

func TestDDLConv_MLOps_EmitSkipsRemovedRows(t *testing.T) {
	t.Parallel()

	rows := []dictionary.Row{
		{ColumnName: "KEEP", OriginalType: "CHAR(4)", RenameTo: "keep", Nullable: true},
		{ColumnName: "GONE", OriginalType: "DATE", RenameTo: "gone", Removed: true},
	}

	record, err := testEmitter(t).Emit("T", rows, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1, record.Table.ColumnCount)
	require.Equal(t, "KEEP", record.Table.Structure.Fields[0].Name)
}

func TestDDLConv_MLOps_EmitValidation(t *testing.T) {
	t.Parallel()

	t.Run("empty target name", func(t *testing.T) {
		t.Parallel()
		rows := []dictionary.Row{{ColumnName: "A", OriginalType: "INTEGER"}}
		_, err := testEmitter(t).Emit("T", rows, nil, nil)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, "A", verr.Column)
	})

	t.Run("colliding target names ignore case", func(t *testing.T) {
		t.Parallel()
		rows := []dictionary.Row{
			{ColumnName: "A", OriginalType: "INTEGER", RenameTo: "value"},
			{ColumnName: "B", OriginalType: "INTEGER", RenameTo: "VALUE"},
		}
		_, err := testEmitter(t).Emit("T", rows, nil, nil)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, "B", verr.Column)
	})

	t.Run("removed rows exempt from validation", func(t *testing.T) {
		t.Parallel()
		rows := []dictionary.Row{
			{ColumnName: "A", OriginalType: "INTEGER", RenameTo: "a"},
			{ColumnName: "B", OriginalType: "INTEGER", Removed: true},
		}
		_, err := testEmitter(t).Emit("T", rows, nil, nil)
		require.NoError(t, err)
	})
}

func TestDDLConv_MLOps_RoundTrip(t *testing.T) {
	t.Parallel()

	rows := []dictionary.Row{
		{ColumnName: "ACCT_ID", OriginalType: "INTEGER", RenameTo: "acct_id", OfficialDescription: "id", Nullable: false},
		{ColumnName: "BALANCE", OriginalType: "DEC(10,2)", RenameTo: "balance", OfficialDescription: "balance", Nullable: true},
	}

	record, err := testEmitter(t).Emit("ACCOUNT", rows, nil, DefaultAuditFields())
	require.NoError(t, err)

	out, err := record.Encode()
	require.NoError(t, err)

	parsed, err := ParseConfig(out)
	require.NoError(t, err)
	require.Equal(t, "ACCOUNT", parsed.TableName)
	require.Equal(t, record.Table, parsed.Table)

	prior, order := parsed.PriorColumns()
	require.Equal(t, []string{"ACCT_ID", "BALANCE"}, order)
	require.Equal(t, dictionary.PriorColumn{
		RenameTo:    "balance",
		Description: "balance",
		InputType:   "DEC(10,2)",
	}, prior["BALANCE"])

	audit := parsed.AuditFields()
	require.Len(t, audit, 2)
	require.Equal(t, DefaultAuditFields(), audit)
}

func TestDDLConv_MLOps_ParseConfigRejectsMultiTable(t *testing.T) {
	t.Parallel()

	_, err := ParseConfig([]byte(`{"A": {"delimiter": "|"}, "B": {"delimiter": "|"}}`))
	require.Error(t, err)

	_, err = ParseConfig([]byte(`not json`))
	require.Error(t, err)
}
