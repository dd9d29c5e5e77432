package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"polyedge/config"

	"go.uber.org/zap"
)

// StateStore persists the scanner score cache, the emitted signal book,
// and the activity watch state to flat JSON files so restarts don't
// re-alert on everything.
type StateStore struct {
	logger          *zap.Logger
	dir             string
	watchFileName   string
	signalsFileName string
	scoresFileName  string
	saveInterval    time.Duration

	scanner         *TraderScanner
	book            *SignalBook
	activityMonitor *ActivityMonitor
}

// NewStateStore creates a new state store. An empty dir disables persistence.
func NewStateStore(
	logger *zap.Logger,
	cfg config.StateConfig,
	scanner *TraderScanner,
	book *SignalBook,
	activityMonitor *ActivityMonitor,
) *StateStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	watchFile := cfg.WatchFileName
	if watchFile == "" {
		watchFile = "watch_state.json"
	}
	signalsFile := cfg.SignalsFileName
	if signalsFile == "" {
		signalsFile = "emitted_signals.json"
	}
	scoresFile := cfg.ScoresFileName
	if scoresFile == "" {
		scoresFile = "trader_scores.json"
	}
	interval := cfg.SaveInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &StateStore{
		logger:          logger.Named("state-store"),
		dir:             cfg.Dir,
		watchFileName:   watchFile,
		signalsFileName: signalsFile,
		scoresFileName:  scoresFile,
		saveInterval:    interval,
		scanner:         scanner,
		book:            book,
		activityMonitor: activityMonitor,
	}
}

// IsEnabled reports whether a state directory is configured.
func (ss *StateStore) IsEnabled() bool {
	return ss.dir != ""
}

// LoadAll restores all persisted state. Missing files are not errors,
// a fresh deployment starts with no state on disk.
func (ss *StateStore) LoadAll() {
	if !ss.IsEnabled() {
		ss.logger.Info("no state directory configured, skipping state load")
		return
	}

	if n, err := ss.loadScores(); err != nil {
		ss.logger.Warn("failed to load trader scores", zap.Error(err))
	} else if n > 0 {
		ss.logger.Info("loaded trader scores", zap.Int("imported", n))
	}

	if n, err := ss.loadSignals(); err != nil {
		ss.logger.Warn("failed to load emitted signals", zap.Error(err))
	} else if n > 0 {
		ss.logger.Info("loaded emitted signals", zap.Int("imported", n))
	}

	if err := ss.loadWatchState(); err != nil {
		ss.logger.Warn("failed to load watch state", zap.Error(err))
	}
}

// SaveAll writes all state to disk.
func (ss *StateStore) SaveAll() error {
	if !ss.IsEnabled() {
		return nil
	}

	var firstErr error
	if err := ss.saveScores(); err != nil {
		ss.logger.Warn("failed to save trader scores", zap.Error(err))
		firstErr = err
	}
	if err := ss.saveSignals(); err != nil {
		ss.logger.Warn("failed to save emitted signals", zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}
	if err := ss.saveWatchState(); err != nil {
		ss.logger.Warn("failed to save watch state", zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (ss *StateStore) loadScores() (int, error) {
	if ss.scanner == nil {
		return 0, nil
	}
	data, err := ss.readFile(ss.scoresFileName)
	if err != nil || data == nil {
		return 0, err
	}
	return ss.scanner.ImportCacheJSON(data)
}

func (ss *StateStore) saveScores() error {
	if ss.scanner == nil || ss.scanner.CacheSize() == 0 {
		return nil
	}
	data, err := ss.scanner.ExportCacheJSON()
	if err != nil {
		return err
	}
	return ss.writeFile(ss.scoresFileName, data)
}

func (ss *StateStore) loadSignals() (int, error) {
	if ss.book == nil {
		return 0, nil
	}
	data, err := ss.readFile(ss.signalsFileName)
	if err != nil || data == nil {
		return 0, err
	}
	var snapshot SignalBookSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return 0, fmt.Errorf("parsing %s: %w", ss.signalsFileName, err)
	}
	return ss.book.Import(&snapshot), nil
}

func (ss *StateStore) saveSignals() error {
	if ss.book == nil || ss.book.Size() == 0 {
		return nil
	}
	data, err := json.Marshal(ss.book.Export())
	if err != nil {
		return err
	}
	return ss.writeFile(ss.signalsFileName, data)
}

func (ss *StateStore) loadWatchState() error {
	if ss.activityMonitor == nil {
		return nil
	}
	data, err := ss.readFile(ss.watchFileName)
	if err != nil || data == nil {
		return err
	}
	var state WatchState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("parsing %s: %w", ss.watchFileName, err)
	}
	ss.activityMonitor.SetState(state)
	ss.logger.Info("loaded watch state",
		zap.Int("wallets", len(state.LastSeen)),
	)
	return nil
}

func (ss *StateStore) saveWatchState() error {
	if ss.activityMonitor == nil {
		return nil
	}
	state := ss.activityMonitor.State()
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return ss.writeFile(ss.watchFileName, data)
}

// readFile reads a state file, returning (nil, nil) when the file doesn't exist.
func (ss *StateStore) readFile(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(ss.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

// writeFile writes a state file atomically via a temp file and rename.
func (ss *StateStore) writeFile(name string, data []byte) error {
	if err := os.MkdirAll(ss.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(ss.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Run starts the periodic save loop.
func (ss *StateStore) Run(ctx context.Context) {
	if !ss.IsEnabled() {
		ss.logger.Info("no state directory configured, state persistence disabled")
		return
	}

	ticker := time.NewTicker(ss.saveInterval)
	defer ticker.Stop()

	ss.logger.Info("state store started",
		zap.String("dir", ss.dir),
		zap.Duration("saveInterval", ss.saveInterval),
	)

	for {
		select {
		case <-ctx.Done():
			// Final save on shutdown
			if err := ss.SaveAll(); err != nil {
				ss.logger.Error("failed to save state on shutdown", zap.Error(err))
			}
			ss.logger.Info("state store stopped")
			return

		case <-ticker.C:
			if err := ss.SaveAll(); err != nil {
				ss.logger.Warn("failed to save state", zap.Error(err))
			}
		}
	}
}
