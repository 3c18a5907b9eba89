package durable

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/fdg312/fittrack/internal/kvstore"
)

var (
	// ErrNotFound means no backing key holds any value.
	ErrNotFound = errors.New("durable record not found")

	// ErrAllCorrupt means every backing key holds a value, but none of them
	// passes validation. The caller decides whether to clear the record.
	ErrAllCorrupt = errors.New("durable record corrupt in all locations")
)

// Validate checks a candidate payload. A nil error accepts it.
type Validate func(data []byte) error

// Record is a JSON document mirrored across several keys of a key-value
// store. Writes fan out to every key; reads try the keys in priority order
// and heal higher-priority keys from the first valid copy found. The first
// key is the primary, the rest are backups.
//
// There is no transaction across the keys: a crash between writes can leave
// the copies inconsistent. The priority read is the only mitigation.
type Record struct {
	store    kvstore.Store
	keys     []string
	validate Validate
	logger   *log.Logger
}

// ReadResult describes where a successful read came from.
type ReadResult struct {
	Data []byte
	// Key is the backing key that served the data.
	Key string
	// Healed is true when a backup served the read and the keys before it
	// were rewritten from its contents.
	Healed bool
}

// New creates a Record over the given keys, primary first. validate may be
// nil, in which case every stored payload is accepted.
func New(store kvstore.Store, logger *log.Logger, validate Validate, keys ...string) (*Record, error) {
	if len(keys) == 0 {
		return nil, errors.New("durable: at least one key is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Record{
		store:    store,
		keys:     keys,
		validate: validate,
		logger:   logger,
	}, nil
}

// PrimaryKey returns the highest-priority backing key.
func (r *Record) PrimaryKey() string {
	return r.keys[0]
}

// Write stores data under every backing key. The primary write's error is
// the operation's error; mirror failures are logged and swallowed so that a
// broken backup location never fails a save.
func (r *Record) Write(ctx context.Context, data []byte) error {
	if err := r.store.Set(ctx, r.keys[0], data); err != nil {
		return fmt.Errorf("durable: write %s: %w", r.keys[0], err)
	}

	for _, key := range r.keys[1:] {
		if err := r.store.Set(ctx, key, data); err != nil {
			r.logger.Printf("WARN durable: mirror write %s failed: %v", key, err)
		}
	}
	return nil
}

// Read returns the first valid payload found in key-priority order. When a
// lower-priority key serves the read, every key before it is rewritten from
// the recovered payload.
func (r *Record) Read(ctx context.Context) (ReadResult, error) {
	sawCorrupt := false

	for i, key := range r.keys {
		data, err := r.store.Get(ctx, key)
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			r.logger.Printf("WARN durable: read %s failed: %v", key, err)
			continue
		}
		if len(data) == 0 {
			continue
		}
		if r.validate != nil {
			if err := r.validate(data); err != nil {
				r.logger.Printf("WARN durable: %s rejected: %v", key, err)
				sawCorrupt = true
				continue
			}
		}

		result := ReadResult{Data: data, Key: key}
		if i > 0 {
			for _, stale := range r.keys[:i] {
				if err := r.store.Set(ctx, stale, data); err != nil {
					r.logger.Printf("WARN durable: heal %s failed: %v", stale, err)
					continue
				}
				result.Healed = true
			}
		}
		return result, nil
	}

	if sawCorrupt {
		return ReadResult{}, ErrAllCorrupt
	}
	return ReadResult{}, ErrNotFound
}

// Clear removes every backing key.
func (r *Record) Clear(ctx context.Context) error {
	return r.store.RemoveAll(ctx, r.keys...)
}

// WritePrimary stores data under the primary key only, leaving backups
// untouched. It resets a record to a new valid payload while the backups
// keep the previous contents for emergency recovery; because the primary is
// valid afterwards, a Read stops there and never falls back.
func (r *Record) WritePrimary(ctx context.Context, data []byte) error {
	if err := r.store.Set(ctx, r.keys[0], data); err != nil {
		return fmt.Errorf("durable: write %s: %w", r.keys[0], err)
	}
	return nil
}
