package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_RecordsFinishedFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := Watch(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "song-1.wav"), []byte("RIFF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "song-2.wav.crdownload"), []byte("RI"), 0o644))
	require.NoError(t, os.Rename(
		filepath.Join(dir, "song-2.wav.crdownload"),
		filepath.Join(dir, "song-2.wav"),
	))

	assert.Eventually(t, func() bool {
		return len(w.Files()) == 2
	}, 2*time.Second, 20*time.Millisecond)

	files := w.Stop()
	assert.Equal(t, []string{"song-1.wav", "song-2.wav"}, files)
}

func TestWatcher_MissingDirectory(t *testing.T) {
	_, err := Watch(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestIsPartial(t *testing.T) {
	assert.True(t, isPartial("a.wav.crdownload"))
	assert.True(t, isPartial("A.WAV.TMP"))
	assert.False(t, isPartial("a.wav"))
}
