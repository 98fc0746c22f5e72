package state

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// #region schema
const stateSchema = `{
	"type": "object",
	"required": ["w", "theta", "last_retrain_ts"],
	"additionalProperties": false,
	"properties": {
		"w":               {"type": "array", "items": {"type": "number"}, "minItems": 4, "maxItems": 4},
		"theta":           {"type": "number"},
		"last_retrain_ts": {"type": "number"}
	}
}`

var compiledStateSchema = jsonschema.MustCompileString("engine_state.json", stateSchema)

// #endregion schema

// #region retry
// Rename retry policy for transiently locked state paths (e.g. a
// concurrent backup holding the file open).
const (
	renameAttempts = 5
	renameBackoff  = 100 * time.Millisecond
)

// #endregion retry

// #region store-struct
// Store persists EngineState as a single JSON file with
// write-temp-then-rename semantics. The mutex serializes in-process
// read-modify-write cycles only; concurrent writers in separate
// processes race last-writer-wins, which is a stated limitation.
type Store struct {
	path string
	mu   sync.Mutex

	// rename is swappable so tests can simulate a locked target path.
	rename func(oldpath, newpath string) error
}

// #endregion store-struct

// #region constructor
// NewStore ensures the parent directory exists and bootstraps the
// default state when no file is present yet.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &IOError{Path: path, Op: "init", Err: err}
		}
	}
	s := &Store{path: path, rename: os.Rename}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.writeAtomic(DefaultState()); err != nil {
			return nil, &IOError{Path: path, Op: "bootstrap", Err: err}
		}
	}
	return s, nil
}

// #endregion constructor

// #region get
// Get loads the current persisted state. Failures are unrecoverable
// IOErrors: a missing, unreadable, or schema-invalid file means the
// controller cannot trust its own parameters.
func (s *Store) Get() (EngineState, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return EngineState{}, &IOError{Path: s.path, Op: "read", Err: err}
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return EngineState{}, &IOError{Path: s.path, Op: "parse", Err: err}
	}
	if err := compiledStateSchema.Validate(payload); err != nil {
		return EngineState{}, &IOError{Path: s.path, Op: "validate", Err: err}
	}
	var st EngineState
	if err := json.Unmarshal(raw, &st); err != nil {
		return EngineState{}, &IOError{Path: s.path, Op: "decode", Err: err}
	}
	return st, nil
}

// #endregion get

// #region update
// Update merges the partial fields into the persisted state under the
// lock and writes the result atomically. A rename that keeps failing
// after bounded retries degrades to a Skipped outcome: the update is
// dropped rather than crashing the surrounding pipeline.
func (s *Store) Update(p Partial) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.Get()
	if err != nil {
		return Outcome{}, err
	}
	if p.W != nil {
		st.W = *p.W
	}
	if p.Theta != nil {
		st.Theta = *p.Theta
	}
	if p.LastRetrainTS != nil {
		st.LastRetrainTS = *p.LastRetrainTS
	}

	if err := s.writeAtomic(st); err != nil {
		reason := fmt.Sprintf("state write skipped after %d attempts: %v", renameAttempts, err)
		log.Printf("[STATE] %s", reason)
		return Outcome{Applied: false, Reason: reason}, nil
	}
	return Outcome{Applied: true}, nil
}

// #endregion update

// #region mark-retrain
// MarkRetrainNow stamps last_retrain_ts with the current epoch seconds.
func (s *Store) MarkRetrainNow() (Outcome, error) {
	now := float64(time.Now().Unix())
	return s.Update(Partial{LastRetrainTS: &now})
}

// #endregion mark-retrain

// #region write-atomic
// writeAtomic writes the full state to a temp file in the same
// directory, then renames it over the target. A crash between write
// and rename leaves the previous file intact for readers.
func (s *Store) writeAtomic(st EngineState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}

	var renameErr error
	for attempt := 0; attempt < renameAttempts; attempt++ {
		if renameErr = s.rename(tmp, s.path); renameErr == nil {
			return nil
		}
		time.Sleep(renameBackoff)
	}
	os.Remove(tmp)
	return fmt.Errorf("rename: %w", renameErr)
}

// #endregion write-atomic
