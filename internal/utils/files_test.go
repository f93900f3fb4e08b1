package utils

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.txt")
	require.NoError(t, SafeWriteFile(path, []byte("hello")))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWithFile(t *testing.T) {
	dir := t.TempDir()
	ok := filepath.Join(dir, "ok.txt")
	require.NoError(t, WithFile(ok, func(w io.Writer) error {
		_, err := io.WriteString(w, "data")
		return err
	}))
	b, err := os.ReadFile(ok)
	require.NoError(t, err)
	assert.Equal(t, "data", string(b))

	boom := errors.New("boom")
	bad := filepath.Join(dir, "bad.txt")
	err = WithFile(bad, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	assert.ErrorIs(t, err, boom)
	_, statErr := os.Stat(bad)
	assert.True(t, os.IsNotExist(statErr))
}

func TestNaming(t *testing.T) {
	assert.Equal(t, "20250116_093228", Timestamp(time.Date(2025, 1, 16, 9, 32, 28, 0, time.UTC)))
	assert.Equal(t, "grow_to_whom", Stem("/data/raw/grow_to_whom.csv"))
	assert.Equal(t, "Howl On Sound", Title("howl_on_sound"))
	assert.Equal(t, "", Title(""))
}

func TestMarkdownTable(t *testing.T) {
	md := MarkdownTable([]string{"Variable", "Share"}, [][]string{{"a|b", "1"}, {"multi\nline", "2"}})
	lines := strings.Split(strings.TrimSpace(md), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "| Variable"))
	assert.Contains(t, lines[1], "---")
	assert.Contains(t, md, "a/b")
	assert.Contains(t, md, "multi line")
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(b))
}
