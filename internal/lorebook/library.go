package lorebook

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"lorebridge/internal/types"

	"github.com/sirupsen/logrus"
)

// Library holds the loaded lore sources. The source set is replaced
// atomically on reload; request processing only ever sees a consistent
// snapshot and never mutates source data.
type Library struct {
	mu      sync.RWMutex
	sources []*Source
	dir     string
	enabled bool
}

// NewLibrary creates a Library and performs the initial load.
// A missing directory is not fatal: the proxy simply runs without lore.
func NewLibrary(configManager types.ConfigManager) *Library {
	cfg := configManager.GetLorebookConfig()
	lib := &Library{
		dir:     cfg.Dir,
		enabled: cfg.Enabled,
	}
	if !cfg.Enabled {
		logrus.Info("Lorebook disabled by configuration")
		return lib
	}
	lib.Reload()
	return lib
}

// Enabled reports whether lorebook injection is active.
func (l *Library) Enabled() bool {
	return l.enabled
}

// Snapshot returns the current source set. The returned slice and the
// sources it points to must be treated as read-only.
func (l *Library) Snapshot() []*Source {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sources
}

// Counts returns the number of loaded sources and total entries.
func (l *Library) Counts() (sources int, entries int) {
	for _, s := range l.Snapshot() {
		sources++
		entries += len(s.Entries)
	}
	return sources, entries
}

// Reload re-reads every JSON file in the configured directory and swaps the
// source set. Malformed files are skipped with a warning, never fatal.
func (l *Library) Reload() {
	if !l.enabled {
		return
	}

	files, err := os.ReadDir(l.dir)
	if err != nil {
		logrus.WithError(err).Warnf("Cannot read lorebook directory %q", l.dir)
		l.swap(nil)
		return
	}

	var sources []*Source
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		path := filepath.Join(l.dir, file.Name())
		source, err := loadSourceFile(path)
		if err != nil {
			logrus.WithError(err).Warnf("Skipping malformed lorebook file %q", file.Name())
			continue
		}
		sources = append(sources, source)
	}

	l.swap(sources)

	entryCount := 0
	for _, s := range sources {
		entryCount += len(s.Entries)
	}
	logrus.Infof("Loaded %d lorebook source(s) with %d entries from %s", len(sources), entryCount, l.dir)
}

func (l *Library) swap(sources []*Source) {
	l.mu.Lock()
	l.sources = sources
	l.mu.Unlock()
}

func loadSourceFile(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var source Source
	if err := json.Unmarshal(data, &source); err != nil {
		return nil, err
	}

	base := filepath.Base(path)
	source.FileName = strings.TrimSuffix(base, filepath.Ext(base))
	return &source, nil
}
