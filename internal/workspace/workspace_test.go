package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	root := t.TempDir()
	content := "main: ledger/main.beancount\nseparatorColumn: 62\npayeeNarration: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte(content), 0o644))

	cfg, ok := LoadConfig(root)
	require.True(t, ok)
	assert.Equal(t, "ledger/main.beancount", cfg.Main)
	assert.Equal(t, 62, cfg.SeparatorColumn)
	require.NotNil(t, cfg.PayeeNarration)
	assert.True(t, *cfg.PayeeNarration)
}

func TestLoadConfig_Missing(t *testing.T) {
	_, ok := LoadConfig(t.TempDir())
	assert.False(t, ok)
}

func TestLoadConfig_Malformed(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("main: [unclosed"), 0o644))

	_, ok := LoadConfig(root)
	assert.False(t, ok)
}

func TestMainFile_Resolution(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("main: main.beancount\n"), 0o644))

	w := New(root, nil)

	// Explicit override wins over config.
	assert.Equal(t, "/abs/override.beancount", w.MainFile("/abs/override.beancount", "/open/doc.beancount"))
	// Relative override resolves against the root.
	assert.Equal(t, filepath.Join(root, "rel.beancount"), w.MainFile("rel.beancount", "/open/doc.beancount"))
	// Config main next.
	assert.Equal(t, filepath.Join(root, "main.beancount"), w.MainFile("", "/open/doc.beancount"))
}

func TestMainFile_FallsBackToDocument(t *testing.T) {
	w := New(t.TempDir(), nil)
	assert.Equal(t, "/open/doc.beancount", w.MainFile("", "/open/doc.beancount"))
}

func TestWatch_ReportsJournalWrites(t *testing.T) {
	root := t.TempDir()
	main := filepath.Join(root, "main.beancount")
	require.NoError(t, os.WriteFile(main, []byte("\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan string, 4)
	w := New(root, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Watch(ctx, main, func(path string) { changes <- path })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(main, []byte("; changed\n"), 0o644))

	select {
	case path := <-changes:
		assert.Equal(t, main, path)
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatch_IgnoresNonJournalFiles(t *testing.T) {
	root := t.TempDir()
	main := filepath.Join(root, "main.beancount")
	require.NoError(t, os.WriteFile(main, []byte("\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan string, 4)
	w := New(root, nil)
	go func() {
		_ = w.Watch(ctx, main, func(path string) { changes <- path })
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	select {
	case path := <-changes:
		t.Fatalf("unexpected change for %s", path)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestIsJournal(t *testing.T) {
	assert.True(t, isJournal("/l/main.beancount"))
	assert.True(t, isJournal("/l/2024.bean"))
	assert.False(t, isJournal("/l/notes.txt"))
}
