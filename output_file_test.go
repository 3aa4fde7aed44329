package arbor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingFileRotatesPastMaxSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	fw, err := NewRotatingFile(RotatingFileConfig{Path: path, MaxSize: 16})
	require.NoError(t, err)
	t.Cleanup(func() { fw.Close() })

	_, err = fw.Write([]byte("0123456789")) // 10 bytes, under the 16-byte cap
	require.NoError(t, err)
	assert.Equal(t, uint64(0), fw.RotationCount())

	_, err = fw.Write([]byte("0123456789")) // pushes cumulative size past 16, rotates first
	require.NoError(t, err)
	assert.Equal(t, uint64(1), fw.RotationCount())
	assert.Equal(t, uint64(20), fw.BytesWritten())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "the active file plus one rotated backup")
}

func TestNewFileOutputSharesOneRotatingFilePerPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shared.log")
	t.Cleanup(func() {
		if f, ok := fileRegistry.Load(path); ok {
			f.(*RotatingFile).Close()
		}
		fileRegistry.Delete(path)
	})

	spec1 := NewFileOutput(RotatingFileConfig{Path: path})
	spec2 := NewFileOutput(RotatingFileConfig{Path: path})

	rec := &Record{Message: "hello"}
	require.NoError(t, spec1.Fn(rec, spec1.Defaults))
	require.NoError(t, spec2.Fn(rec, spec2.Defaults))

	f, ok := fileRegistry.Load(path)
	require.True(t, ok)
	rf := f.(*RotatingFile)
	assert.Equal(t, uint64(len("hello\n")*2), rf.BytesWritten(), "both outputs must write through the same shared RotatingFile")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\nhello\n", string(data))
}

func TestWriteFileRejectsEmptyPath(t *testing.T) {
	err := writeFile(&Record{Message: "x"}, map[string]interface{}{})
	require.Error(t, err)
}

func TestRotatingFileCleanupRemovesExcessBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	fw, err := NewRotatingFile(RotatingFileConfig{Path: path, MaxSize: 1, MaxBackups: 1})
	require.NoError(t, err)
	t.Cleanup(func() { fw.Close() })

	for i := 0; i < 3; i++ {
		_, err = fw.Write([]byte("x"))
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		entries, _ := os.ReadDir(dir)
		return len(entries) <= 2 // active file plus at most MaxBackups rotated ones
	}, time.Second, 10*time.Millisecond)
}
