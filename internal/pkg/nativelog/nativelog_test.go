package nativelog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDir(t *testing.T) {
	t.Setenv(EnvLogDir, "/var/log/shelfscout")
	assert.Equal(t, "/tmp/x", ResolveDir(" /tmp/x "))
	assert.Equal(t, "/var/log/shelfscout", ResolveDir(""))

	t.Setenv(EnvLogDir, "")
	assert.Equal(t, filepath.Join(".", "logs"), ResolveDir(""))
}

func TestWriterAppendsDailyFile(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	_, err = w.Write([]byte("one\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("two\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, DailyFilename(time.Now())))
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))
}

func TestDailyFilename(t *testing.T) {
	day := time.Date(2026, 3, 4, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "shelfscout_2026-03-04.log", DailyFilename(day))
}
