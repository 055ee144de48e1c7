package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLines_SaveAppendsOneLinePerRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")

	s, err := NewJSONLines(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(context.Background(), map[string]any{"a": 1}))
	require.NoError(t, s.Save(context.Background(), map[string]any{"a": 2}))
	require.NoError(t, s.Flush())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.EqualValues(t, 1, first["a"])
}

func TestJSONLines_SaveErrorWritesToSiblingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")

	s, err := NewJSONLines(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveError(time.Unix(0, 0).UTC(), errors.New("boom"), []byte{0xDE, 0xAD}))
	require.NoError(t, s.Flush())

	errPath := filepath.Join(dir, "out_errors.jsonl")
	data, err := os.ReadFile(errPath)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data[:len(data)-1], &entry))
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "DEAD", entry["raw_data"])
}
