package sampling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"

	"github.com/mfaircloth/toolcycle/completion"
)

var (
	// ErrLockTimeout is returned when acquiring the transcript lock times out.
	ErrLockTimeout = fmt.Errorf("timeout acquiring transcript lock")
)

const (
	// lockPollInterval is the interval to sleep when polling for the lock.
	lockPollInterval = 10 * time.Millisecond

	defaultLockTimeout = 5 * time.Second
)

// Transcript appends conversation messages to a JSONL file, one message per
// line, guarded by an OS-level file lock so concurrent loop runs (including
// separate processes) can share one transcript file. It is a passive
// observer: the loop's behavior never depends on it.
type Transcript struct {
	path        string
	lock        *flock.Flock
	lockTimeout time.Duration
}

// NewTranscript creates a Transcript writing to path. The file is created
// on first append.
func NewTranscript(path string) (*Transcript, error) {
	if path == "" {
		return nil, fmt.Errorf("transcript path is required")
	}
	return &Transcript{
		path:        path,
		lock:        flock.New(path + ".lock"),
		lockTimeout: defaultLockTimeout,
	}, nil
}

// Path returns the transcript file path.
func (t *Transcript) Path() string { return t.path }

// Append writes one message as a JSON line under the file lock.
func (t *Transcript) Append(msg completion.Message) error {
	line, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode transcript message: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.lockTimeout)
	defer cancel()

	locked, err := t.lock.TryLockContext(ctx, lockPollInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrLockTimeout
		}
		return fmt.Errorf("acquire transcript lock: %w", err)
	}
	if !locked {
		return ErrLockTimeout
	}
	defer func() { _ = t.lock.Unlock() }()

	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}
