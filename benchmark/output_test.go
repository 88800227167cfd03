package benchmark

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewRecordWriter(&buf)

	require.NoError(t, w.WriteObject(map[string]string{"os": "Linux <test>"}))
	require.NoError(t, w.WriteHeader([]string{"a", "b"}))
	require.NoError(t, w.WriteRow([]any{1, nil}))
	require.Error(t, w.WriteRow([]any{1}), "row narrower than the header")
	require.NoError(t, w.WriteFin())

	assert.Equal(t, "{\"os\":\"Linux <test>\"}\n[\"a\",\"b\"]\n[1,null]\n{\"fin\":true}\n", buf.String())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestCreateRecordWriterFlushesEveryLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	w, err := CreateRecordWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.WriteHeader(Columns))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, readLines(t, data), 1, "visible before close")

	require.NoError(t, w.Close())
}
