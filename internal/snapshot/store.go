// Package snapshot captures pre-mutation file content for agent tool calls
// and correlates it to the tool-call identifier the runtime assigns later.
//
// The store is best-effort by contract: a failed capture degrades to "no
// snapshot for this call" and is logged, never returned, because the mutation
// being instrumented must proceed whether or not a diff can be shown for it.
package snapshot

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Tool kinds that mutate a file in place. Every other kind is a no-op for
// the store: reads, shell commands and the like have no "before" state worth
// capturing.
const (
	ToolEdit   = "edit"
	ToolCreate = "create"
)

// Snapshot is the captured "before" state of one mutated file. TempFilePath
// points at a private copy inside the store's arena; when the target did not
// exist before the mutation the copy is an empty file and ExistedBefore is
// false, so a later diff renders the whole file as new.
type Snapshot struct {
	OriginalPath  string
	TempFilePath  string
	ExistedBefore bool

	// ToolCallID is set once the pending entry has been correlated.
	ToolCallID string
}

// Store owns a private temp-file arena and the two-phase snapshot maps:
// entries are keyed by path until the runtime reveals the tool-call id, then
// re-keyed by that id. One Store instance owns its arena exclusively for its
// whole lifetime.
type Store struct {
	arenaDir string
	logger   *slog.Logger

	mu         sync.Mutex
	byPath     map[string]*Snapshot
	byCallID   map[string]*Snapshot
	nextFileID uint64
}

// New creates the arena directory and an empty store. The logger may be nil.
func New(logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir, err := os.MkdirTemp("", "agentpane-snapshots-")
	if err != nil {
		return nil, fmt.Errorf("create snapshot arena: %w", err)
	}
	return &Store{
		arenaDir: dir,
		logger:   logger,
		byPath:   make(map[string]*Snapshot),
		byCallID: make(map[string]*Snapshot),
	}, nil
}

// ArenaDir reports the arena directory path.
func (s *Store) ArenaDir() string {
	return s.arenaDir
}

// CaptureForTool records the current content of filePath before toolKind
// mutates it. Only ToolEdit and ToolCreate are eligible. If a pending
// snapshot already exists for the path its backing file is deleted first:
// only the most recent pre-correlation "before" state per path survives.
// A target that does not exist yet is captured as an empty file so the
// eventual diff shows the entire file as new.
//
// CaptureForTool never fails: file-system errors are logged and the capture
// is skipped.
func (s *Store) CaptureForTool(toolKind, filePath string) {
	if toolKind != ToolEdit && toolKind != ToolCreate {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byPath[filePath]; ok {
		s.removeFileLocked(prev.TempFilePath)
		delete(s.byPath, filePath)
	}

	content, existed, err := readIfExists(filePath)
	if err != nil {
		s.logger.Warn("snapshot capture skipped", "path", filePath, "error", err)
		return
	}

	tempPath := s.nextTempPathLocked(filepath.Base(filePath))
	if err := os.WriteFile(tempPath, content, 0o600); err != nil {
		s.logger.Warn("snapshot write failed", "path", filePath, "error", err)
		return
	}

	s.byPath[filePath] = &Snapshot{
		OriginalPath:  filePath,
		TempFilePath:  tempPath,
		ExistedBefore: existed,
	}
}

// CorrelateToToolCall moves the pending snapshot for filePath under callID.
// Absence of a pending entry is an expected state (the hook never fired, the
// tool kind was ineligible, or correlation already happened) and is a silent
// no-op. Afterwards the path is free to be snapshotted again for a future
// mutation.
func (s *Store) CorrelateToToolCall(filePath, callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.byPath[filePath]
	if !ok {
		return
	}
	delete(s.byPath, filePath)
	snap.ToolCallID = callID
	s.byCallID[callID] = snap
}

// Get returns the correlated snapshot for callID. It may be called any
// number of times; the second result is false when no snapshot exists.
func (s *Store) Get(callID string) (*Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.byCallID[callID]
	return snap, ok
}

// Cleanup deletes the backing file and tracking entry for callID. Calling it
// twice, or with an unknown id, is not an error.
func (s *Store) Cleanup(callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.byCallID[callID]
	if !ok {
		return
	}
	s.removeFileLocked(snap.TempFilePath)
	delete(s.byCallID, callID)
}

// CleanupAll sweeps both the correlated and the still-pending maps, deleting
// every backing file it finds. Used at session boundaries and on Close.
func (s *Store) CleanupAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, snap := range s.byCallID {
		s.removeFileLocked(snap.TempFilePath)
		delete(s.byCallID, id)
	}
	for path, snap := range s.byPath {
		s.removeFileLocked(snap.TempFilePath)
		delete(s.byPath, path)
	}
}

// CreateTemp writes content into a uniquely named arena file and returns its
// path. It serves callers that already hold "before" content in memory, for
// example a synthesized virtual document, and want the same arena-backed
// lifetime guarantees as the path-based flow.
func (s *Store) CreateTemp(content, baseName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if baseName == "" {
		baseName = "snapshot"
	}
	tempPath := s.nextTempPathLocked(baseName)
	if err := os.WriteFile(tempPath, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("write temp snapshot: %w", err)
	}
	return tempPath, nil
}

// CleanupTempFile deletes a file previously returned by CreateTemp. Paths
// outside the arena are refused; a file that is already gone is fine.
func (s *Store) CleanupTempFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.insideArena(path) {
		s.logger.Warn("refusing to delete file outside snapshot arena", "path", path)
		return
	}
	s.removeFileLocked(path)
}

// Close sweeps all snapshots and removes the arena directory recursively.
// Errors during removal are logged, never returned: disposal must not fail
// a shutdown.
func (s *Store) Close() {
	s.CleanupAll()
	if err := os.RemoveAll(s.arenaDir); err != nil {
		s.logger.Warn("snapshot arena removal failed", "dir", s.arenaDir, "error", err)
	}
}

// nextTempPathLocked builds a unique arena path from a monotonically
// increasing counter, a timestamp and the target's base name, so repeated
// snapshots of the same file never collide.
func (s *Store) nextTempPathLocked(baseName string) string {
	s.nextFileID++
	name := fmt.Sprintf("%d-%d-%s", s.nextFileID, time.Now().UnixNano(), filepath.Base(baseName))
	return filepath.Join(s.arenaDir, name)
}

func (s *Store) insideArena(path string) bool {
	rel, err := filepath.Rel(s.arenaDir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (s *Store) removeFileLocked(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("snapshot temp file removal failed", "path", path, "error", err)
	}
}

func readIfExists(path string) (content []byte, existed bool, _ error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}
