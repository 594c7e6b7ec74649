// Package session persists chat sessions: per-session metadata plus an
// append-only JSONL event log that the CLI and TUI replay on resume.
package session

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

const (
	metaFileName    = "session.json"
	eventsFileName  = "events.jsonl"
	archiveFileName = "events.jsonl.zst"

	// Low-volume events are fsynced immediately; assistant deltas are not
	// worth a sync each and ride the next flush.
	syncInterval = time.Second
)

// KindAssistantDelta marks high-volume streaming events that skip the
// per-append fsync.
const KindAssistantDelta = "assistant_delta"

// Meta describes one session.
type Meta struct {
	SessionID     string    `json:"session_id"`
	WorkspaceRoot string    `json:"workspace_root"`
	AgentCommand  string    `json:"agent_command"`
	CreatedAt     time.Time `json:"created_at"`
}

// Event is one logged entry. Payload carries the kind-specific body.
type Event struct {
	ID        int64           `json:"id"`
	Timestamp time.Time       `json:"ts"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Store manages sessions under a root directory, one subdirectory per
// session id.
type Store struct {
	rootDir string

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	metaPath   string
	eventsPath string

	meta   *Meta
	nextID int64

	file *os.File
	bw   *bufio.Writer

	lastSync time.Time
}

func New(rootDir string) *Store {
	return &Store{
		rootDir:  rootDir,
		sessions: make(map[string]*session),
	}
}

// Create starts a new session directory with a fresh uuid.
func (s *Store) Create(workspaceRoot, agentCommand string) (*Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	dir := filepath.Join(s.rootDir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	meta := &Meta{
		SessionID:     id,
		WorkspaceRoot: workspaceRoot,
		AgentCommand:  agentCommand,
		CreatedAt:     time.Now(),
	}
	sess := &session{
		metaPath:   filepath.Join(dir, metaFileName),
		eventsPath: filepath.Join(dir, eventsFileName),
		meta:       meta,
		nextID:     1,
	}
	if err := writeMetaFile(sess.metaPath, meta); err != nil {
		return nil, err
	}
	if err := sess.open(); err != nil {
		return nil, err
	}
	s.sessions[id] = sess
	cp := *meta
	return &cp, nil
}

// List returns metadata for every session directory under the root.
// Directories without a readable meta file are skipped.
func (s *Store) List() ([]*Meta, error) {
	entries, err := os.ReadDir(s.rootDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]*Meta, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := readMetaFile(filepath.Join(s.rootDir, e.Name(), metaFileName))
		if err != nil {
			continue
		}
		out = append(out, meta)
	}
	return out, nil
}

func (s *Store) Get(sessionID string) (*Meta, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	meta, err := readMetaFile(filepath.Join(s.rootDir, sessionID, metaFileName))
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return meta, nil
}

func (s *Store) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.sessions[sessionID]; sess != nil {
		_ = sess.close()
		delete(s.sessions, sessionID)
	}
	return os.RemoveAll(filepath.Join(s.rootDir, sessionID))
}

// Append logs one event, assigning the next monotonically increasing id.
// Payload is marshaled as the event body; nil is allowed.
func (s *Store) Append(sessionID, kind string, payload any) (*Event, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.loadLocked(sessionID)
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if payload != nil {
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal event payload: %w", err)
		}
	}
	evt := &Event{
		ID:        sess.nextID,
		Timestamp: time.Now(),
		Kind:      kind,
		Payload:   raw,
	}
	sess.nextID++
	if err := sess.append(evt, kind != KindAssistantDelta); err != nil {
		return nil, err
	}
	return evt, nil
}

// Replay streams logged events with id > afterEventID to send, in order.
// It reads the live log when present and falls back to the zstd archive for
// archived sessions.
func (s *Store) Replay(sessionID string, afterEventID int64, send func(*Event) error) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	dir := filepath.Join(s.rootDir, sessionID)
	if _, err := readMetaFile(filepath.Join(dir, metaFileName)); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}

	s.mu.Lock()
	if sess := s.sessions[sessionID]; sess != nil && sess.bw != nil {
		if err := sess.bw.Flush(); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.mu.Unlock()

	eventsPath := filepath.Join(dir, eventsFileName)
	archivePath := filepath.Join(dir, archiveFileName)

	r, closeFn, err := openEventLog(eventsPath, archivePath)
	if err != nil {
		return err
	}
	defer closeFn()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var evt Event
		if err := json.Unmarshal(line, &evt); err != nil {
			return fmt.Errorf("corrupt event log %s: %w", eventsPath, err)
		}
		if evt.ID <= afterEventID {
			continue
		}
		if err := send(&evt); err != nil {
			return err
		}
	}
	return sc.Err()
}

// Archive compresses a finished session's event log and removes the plain
// file. Replay keeps working against the archive.
func (s *Store) Archive(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.loadLocked(sessionID)
	if err != nil {
		return err
	}
	if err := sess.close(); err != nil {
		return err
	}
	delete(s.sessions, sessionID)

	src, err := os.Open(sess.eventsPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer src.Close()

	archivePath := filepath.Join(filepath.Dir(sess.eventsPath), archiveFileName)
	dst, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		dst.Close()
		return err
	}
	if _, err := io.Copy(enc, src); err != nil {
		enc.Close()
		dst.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	return os.Remove(sess.eventsPath)
}

// Close flushes and closes every open session log.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for id, sess := range s.sessions {
		if err := sess.close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.sessions, id)
	}
	return firstErr
}

func (s *Store) loadLocked(sessionID string) (*session, error) {
	if sess := s.sessions[sessionID]; sess != nil {
		return sess, nil
	}
	dir := filepath.Join(s.rootDir, sessionID)
	meta, err := readMetaFile(filepath.Join(dir, metaFileName))
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if _, err := os.Stat(filepath.Join(dir, archiveFileName)); err == nil {
		return nil, fmt.Errorf("session %s is archived", sessionID)
	}
	sess := &session{
		metaPath:   filepath.Join(dir, metaFileName),
		eventsPath: filepath.Join(dir, eventsFileName),
		meta:       meta,
		nextID:     1,
	}
	if last, err := lastEventID(sess.eventsPath); err == nil && last >= sess.nextID {
		sess.nextID = last + 1
	}
	if err := sess.open(); err != nil {
		return nil, err
	}
	s.sessions[sessionID] = sess
	return sess, nil
}

func (sess *session) open() error {
	f, err := os.OpenFile(sess.eventsPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	sess.file = f
	sess.bw = bufio.NewWriter(f)
	return nil
}

func (sess *session) append(evt *Event, syncNow bool) error {
	if sess.bw == nil {
		return fmt.Errorf("session log is closed")
	}
	line, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if _, err := sess.bw.Write(append(line, '\n')); err != nil {
		return err
	}
	if syncNow || time.Since(sess.lastSync) > syncInterval {
		if err := sess.bw.Flush(); err != nil {
			return err
		}
		if err := sess.file.Sync(); err != nil {
			return err
		}
		sess.lastSync = time.Now()
	}
	return nil
}

func (sess *session) close() error {
	if sess.bw != nil {
		if err := sess.bw.Flush(); err != nil {
			return err
		}
		sess.bw = nil
	}
	if sess.file != nil {
		err := sess.file.Close()
		sess.file = nil
		return err
	}
	return nil
}

func openEventLog(eventsPath, archivePath string) (io.Reader, func(), error) {
	f, err := os.Open(eventsPath)
	if err == nil {
		return f, func() { f.Close() }, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, nil, err
	}
	af, err := os.Open(archivePath)
	if errors.Is(err, os.ErrNotExist) {
		// Brand-new session with no events yet.
		return bufio.NewReader(io.MultiReader()), func() {}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	dec, err := zstd.NewReader(af)
	if err != nil {
		af.Close()
		return nil, nil, err
	}
	return dec.IOReadCloser(), func() {
		dec.Close()
		af.Close()
	}, nil
}

func lastEventID(eventsPath string) (int64, error) {
	f, err := os.Open(eventsPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var last int64
	for sc.Scan() {
		var evt Event
		if err := json.Unmarshal(sc.Bytes(), &evt); err != nil {
			continue
		}
		if evt.ID > last {
			last = evt.ID
		}
	}
	return last, sc.Err()
}

func writeMetaFile(path string, meta *Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readMetaFile(path string) (*Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
