package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"radhedge/internal/model"
)

const lockRetryDelay = 50 * time.Millisecond

// ErrJournalLocked is returned by Lock when another holder keeps the journal
// locked until ctx is done.
var ErrJournalLocked = errors.New("journal is locked by another process")

// JsonlJournal writes pool records to a JSONL file, one record per line.
type JsonlJournal struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

func NewJsonlJournal(path string) *JsonlJournal {
	return &JsonlJournal{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Lock takes an exclusive lock on the journal's lock file, waiting until ctx
// is done. Hold it from Load through the last Append so that no other
// process registers pools from a stale view of the journal.
func (j *JsonlJournal) Lock(ctx context.Context) error {
	dir := filepath.Dir(j.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create journal dir: %w", err)
		}
	}

	locked, err := j.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %s: %v", ErrJournalLocked, j.path, ctxErr)
		}
		return fmt.Errorf("lock journal: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", ErrJournalLocked, j.path)
	}
	return nil
}

// Unlock releases the lock taken by Lock.
func (j *JsonlJournal) Unlock() error {
	return j.lock.Unlock()
}

// Append writes rec as a single line and syncs the file before returning.
func (j *JsonlJournal) Append(ctx context.Context, rec model.PoolRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal pool record: %w", err)
	}
	line = append(line, '\n')

	dir := filepath.Dir(j.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create journal dir: %w", err)
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(line); err != nil {
		return fmt.Errorf("write pool record: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync journal: %w", err)
	}
	return nil
}

// Load reads every record in the journal. A missing file is an empty journal.
func (j *JsonlJournal) Load(ctx context.Context) ([]model.PoolRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	var records []model.PoolRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec model.PoolRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("parse journal line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return records, nil
}
