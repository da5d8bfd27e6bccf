package ddl

import (
	"errors"
	"strings"
	"testing"

	"github.com/olaria/ddlconv/pkg/typemap"
	"github.com/stretchr/testify/require"
)

const accountDDL = `
000100 CREATE TABLE DBPROD.ACCOUNT
000200     (ACCT_ID        INTEGER      NOT NULL,
000300      BRANCH_CD      CHAR(4)      NOT NULL,
000400      BALANCE        DEC(10,2),
000500      CUST_NAME      VARCHAR(120) WITH DEFAULT '',
000600      OPENED         DATE         NOT NULL WITH DEFAULT,
000700      LAST_TOUCHED   TIMESTAMP,
000800      PRIMARY KEY (ACCT_ID))
000900   IN DBACC01.TSACC01;

LABEL ON TABLE DBPROD.ACCOUNT IS 'Customer checking accounts';

LABEL ON DBPROD.ACCOUNT
    (ACCT_ID      IS 'Account identifier',
     BRANCH_CD    IS 'Originating branch code',
     BALANCE      IS 'Current balance',
     CUST_NAME    IS 'Customer full name');

CREATE UNIQUE INDEX DBPROD.XACCT01
    ON DBPROD.ACCOUNT
    (ACCT_ID ASC);
`

func TestDDLConv_DDL_ParseAccount(t *testing.T) {
	t.Parallel()

	schema, err := Parse(accountDDL)
	require.NoError(t, err)

	require.Equal(t, "ACCOUNT", schema.TableName)
	require.Equal(t, "Customer checking accounts", schema.Description)

	var names []string
	for _, c := range schema.Columns {
		names = append(names, c.Name)
	}
	require.Equal(t, []string{"ACCT_ID", "BRANCH_CD", "BALANCE", "CUST_NAME", "OPENED", "LAST_TOUCHED"}, names)

	byName := make(map[string]ColumnDef)
	for _, c := range schema.Columns {
		byName[c.Name] = c
	}

	require.False(t, byName["ACCT_ID"].Nullable)
	require.True(t, byName["BALANCE"].Nullable)
	require.Equal(t, "decimal(10,2)", byName["BALANCE"].Logical.String())
	require.Equal(t, "VARCHAR(120)", byName["CUST_NAME"].RawType)
	require.Equal(t, typemap.KindString, byName["CUST_NAME"].Logical.Kind)
	require.Equal(t, typemap.KindTimestamp, byName["LAST_TOUCHED"].Logical.Kind)

	require.Equal(t, "Account identifier", byName["ACCT_ID"].InlineComment)
	require.Equal(t, "Current balance", byName["BALANCE"].InlineComment)
	require.Empty(t, byName["LAST_TOUCHED"].InlineComment)

	require.Len(t, schema.UniqueIndexes, 1)
	require.Equal(t, "XACCT01", schema.UniqueIndexes[0].Name)
	require.Equal(t, []string{"ACCT_ID"}, schema.UniqueIndexes[0].Columns)
}

func TestDDLConv_DDL_ParseSingleLine(t *testing.T) {
	t.Parallel()

	schema, err := Parse(`CREATE TABLE SCHEMA.ACCOUNT ( ACCT_ID INTEGER NOT NULL, BALANCE DEC(10,2), OPENED DATE )`)
	require.NoError(t, err)

	require.Equal(t, "ACCOUNT", schema.TableName)
	require.Len(t, schema.Columns, 3)
	require.Equal(t, "integer", schema.Columns[0].Logical.String())
	require.Equal(t, "decimal(10,2)", schema.Columns[1].Logical.String())
	require.Equal(t, "date", schema.Columns[2].Logical.String())
	require.False(t, schema.Columns[0].Nullable)
	require.True(t, schema.Columns[1].Nullable)
}

func TestDDLConv_DDL_ParsePreservesDeclarationOrder(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("CREATE TABLE T1 (")
	cols := []string{"C1", "C2", "C3", "C4", "C5", "C6", "C7", "C8"}
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c + " INTEGER")
	}
	b.WriteString(")")

	schema, err := Parse(b.String())
	require.NoError(t, err)
	require.Len(t, schema.Columns, len(cols))
	for i, c := range cols {
		require.Equal(t, c, schema.Columns[i].Name)
	}
}

func TestDDLConv_DDL_ParseUnqualifiedName(t *testing.T) {
	t.Parallel()

	schema, err := Parse("CREATE TABLE orders (ID INTEGER)")
	require.NoError(t, err)
	require.Equal(t, "ORDERS", schema.TableName)
}

func TestDDLConv_DDL_ParseTrailingComments(t *testing.T) {
	t.Parallel()

	schema, err := Parse(`CREATE TABLE T (
		ID INTEGER NOT NULL, -- surrogate key
		NM VARCHAR(40) -- display name
	)`)
	require.NoError(t, err)
	require.Equal(t, "surrogate key", schema.Columns[0].InlineComment)
	require.Equal(t, "display name", schema.Columns[1].InlineComment)
}

func TestDDLConv_DDL_ParseCommentAfterComma(t *testing.T) {
	t.Parallel()

	// The comment sits after the separating comma, so it describes the column
	// flushed on that line, not the one that starts on the next.
	schema, err := Parse(`CREATE TABLE T (
		ID INTEGER NOT NULL, -- surrogate key
		NM VARCHAR(40),
		TS TIMESTAMP
	)`)
	require.NoError(t, err)
	require.Equal(t, "surrogate key", schema.Columns[0].InlineComment)
	require.Empty(t, schema.Columns[1].InlineComment)
	require.Empty(t, schema.Columns[2].InlineComment)
}

func TestDDLConv_DDL_ParseCommentAtEndOfColumnList(t *testing.T) {
	t.Parallel()

	schema, err := Parse("CREATE TABLE T (ID INTEGER NOT NULL, -- surrogate key\nNM VARCHAR(40) -- display name)")
	require.NoError(t, err)
	require.Equal(t, "surrogate key", schema.Columns[0].InlineComment)
	require.Equal(t, "display name", schema.Columns[1].InlineComment)
}

func TestDDLConv_DDL_ParseSkipsConstraintClauses(t *testing.T) {
	t.Parallel()

	schema, err := Parse(`CREATE TABLE T (
		ID INTEGER NOT NULL,
		NM CHAR(10),
		PRIMARY KEY (ID),
		CONSTRAINT CK_NM CHECK (NM <> ''),
		FOREIGN KEY (NM) REFERENCES OTHER(NM)
	)`)
	require.NoError(t, err)
	require.Len(t, schema.Columns, 2)
}

func TestDDLConv_DDL_ParseErrors(t *testing.T) {
	t.Parallel()

	t.Run("no create table", func(t *testing.T) {
		t.Parallel()
		_, err := Parse("SELECT * FROM T")
		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr))
	})

	t.Run("missing column list", func(t *testing.T) {
		t.Parallel()
		_, err := Parse("CREATE TABLE S.T")
		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr))
	})

	t.Run("unterminated column list", func(t *testing.T) {
		t.Parallel()
		_, err := Parse("CREATE TABLE S.T (ID INTEGER")
		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr))
	})

	t.Run("column without type", func(t *testing.T) {
		t.Parallel()
		_, err := Parse("CREATE TABLE S.T (ID INTEGER, NAME)")
		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr))
		require.Contains(t, parseErr.Error(), "NAME")
	})

	t.Run("duplicate column", func(t *testing.T) {
		t.Parallel()
		_, err := Parse("CREATE TABLE S.T (ID INTEGER, id CHAR(2))")
		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr))
	})

	t.Run("unknown type carries token", func(t *testing.T) {
		t.Parallel()
		_, err := Parse("CREATE TABLE S.T (ID INTEGER, PIC GRAPHIC(10))")
		var unknownErr *typemap.UnknownTypeError
		require.True(t, errors.As(err, &unknownErr))
		require.Equal(t, "GRAPHIC(10)", unknownErr.Token)
		require.Contains(t, err.Error(), "PIC")
	})
}
