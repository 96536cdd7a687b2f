package source

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDelimited(t *testing.T) {
	input := "timestamp0;timestamp1;encode\n1.0;1.02;2.5\n\n1.3;1.31;2.8;extra\n1.6\n"

	table, err := ReadDelimited(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"timestamp0", "timestamp1", "encode"}, table.Header)
	assert.Equal(t, [][]string{
		{"1.0", "1.02", "2.5"},
		{"1.3", "1.31", "2.8", "extra"},
		{"1.6"},
	}, table.Rows)
}

func TestReadDelimited_Empty(t *testing.T) {
	_, err := ReadDelimited(context.Background(), strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestReadDelimited_HeaderOnly(t *testing.T) {
	table, err := ReadDelimited(context.Background(), strings.NewReader("timestamp0;encode\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"timestamp0", "encode"}, table.Header)
	assert.Empty(t, table.Rows)
}

func TestDelimited_Read(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.csv")
	require.NoError(t, os.WriteFile(path, []byte("timestamp0;encode\n1;2\n3;4\n"), 0o644))

	var buf bytes.Buffer
	src, err := Open(path, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	require.NoError(t, err)
	require.IsType(t, &Delimited{}, src)
	defer src.Close()

	table, err := src.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}, {"3", "4"}}, table.Rows)
	assert.Contains(t, buf.String(), "frame log loaded")
	assert.Contains(t, buf.String(), "rows=2")
}

func TestDelimited_MissingFile(t *testing.T) {
	src, err := Open(filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)

	_, err = src.Read(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func createCaptureDB(t *testing.T, table string, rows [][]any) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "capture.sqlite")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(fmt.Sprintf(`CREATE TABLE %s (num INTEGER, timestamp0 REAL, timestamp1 REAL, encode TEXT, dropped INTEGER)`, table))
	require.NoError(t, err)

	for _, r := range rows {
		_, err = db.Exec(fmt.Sprintf(`INSERT INTO %s VALUES (?, ?, ?, ?, ?)`, table), r...)
		require.NoError(t, err)
	}
	return path
}

func TestSqlite_Read(t *testing.T) {
	path := createCaptureDB(t, "frames", [][]any{
		{1, 1.0, 1.02, "2.5", 0},
		{2, 1.3, nil, "2.8", 1},
	})

	src, err := Open(path)
	require.NoError(t, err)
	require.IsType(t, &Sqlite{}, src)
	defer src.Close()

	table, err := src.Read(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"num", "timestamp0", "timestamp1", "encode", "dropped"}, table.Header)
	assert.Equal(t, [][]string{
		{"1", "1", "1.02", "2.5", "0"},
		{"2", "1.3", "", "2.8", "1"},
	}, table.Rows)

	assert.NoError(t, src.Close())
}

func TestSqlite_CustomTable(t *testing.T) {
	path := createCaptureDB(t, "run_42", [][]any{{1, 1.0, 1.0, "2", 0}})

	src, err := Open(path, WithTable("run_42"))
	require.NoError(t, err)
	defer src.Close()

	table, err := src.Read(context.Background())
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1)
}

func TestSqlite_NoSuchTable(t *testing.T) {
	path := createCaptureDB(t, "frames", nil)

	src, err := Open(path, WithTable("other"))
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Read(context.Background())
	assert.ErrorIs(t, err, ErrNoSuchTable)
}

func TestSqlite_InvalidTable(t *testing.T) {
	for _, name := range []string{"", "frames; DROP TABLE frames", `a"b`, "1abc"} {
		_, err := Open("capture.db", WithTable(name))
		assert.ErrorIs(t, err, ErrInvalidTable, name)
	}
}
