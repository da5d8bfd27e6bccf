package artifact

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDDLConv_Artifact_SaveAndOpen(t *testing.T) {
	t.Parallel()

	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	csvPath, err := s.SaveDictionary("account", []byte("table;...\n"))
	require.NoError(t, err)
	require.Contains(t, csvPath, "ACCOUNT.csv")

	jsonPath, err := s.SaveConfig("ACCOUNT", []byte("{}\n"))
	require.NoError(t, err)
	require.Contains(t, jsonPath, "account.json")

	rc, err := s.Open("ACCOUNT.csv")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "table;...\n", string(data))

	names, err := s.List()
	require.NoError(t, err)
	require.Equal(t, []string{"ACCOUNT.csv", "account.json"}, names)
}

func TestDDLConv_Artifact_OpenRejectsTraversal(t *testing.T) {
	t.Parallel()

	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../secret", "a/b.csv", "..", ".hidden"} {
		_, err := s.Open(name)
		require.Error(t, err, "name %q", name)
	}

	_, err = s.Open("missing.csv")
	require.Error(t, err)
}

func TestDDLConv_Artifact_WriteZip(t *testing.T) {
	t.Parallel()

	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.SaveDictionary("T1", []byte("dict"))
	require.NoError(t, err)
	_, err = s.SaveConfig("T1", []byte("conf"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.WriteZip(&buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	require.Equal(t, "T1.csv", zr.File[0].Name)
	require.Equal(t, "t1.json", zr.File[1].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "dict", string(data))
}

func TestDDLConv_Artifact_Clear(t *testing.T) {
	t.Parallel()

	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.SaveDictionary("T1", []byte("x"))
	require.NoError(t, err)
	require.NoError(t, s.Clear())

	names, err := s.List()
	require.NoError(t, err)
	require.Empty(t, names)
}
