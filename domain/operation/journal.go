package operation

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Sink receives every Log mutation for live display. Append registers a
// new log and returns its position; Update replaces the entry at that
// position. Implementations must return quickly.
type Sink interface {
	Append(s Snapshot) int
	Update(index int, s Snapshot)
}

// Store persists finished logs.
type Store interface {
	Save(ctx context.Context, name string, s Snapshot) error
	LoadAll(ctx context.Context) ([]Snapshot, error)
}

// IDGenerator allocates log identifiers.
type IDGenerator interface {
	// NextCode returns the operation code of a new log.
	NextCode() int64
	// NextSequence returns the sequence number used in a persisted file name.
	NextSequence() int64
	// NewID returns a unique log ID.
	NewID() string
}

// Counter is an IDGenerator backed by atomic counters and random UUIDs.
// Codes and sequences start at 1 and only grow.
type Counter struct {
	code     atomic.Int64
	sequence atomic.Int64
}

// NewCounter returns a Counter starting from zero.
func NewCounter() *Counter {
	return &Counter{}
}

// NextCode implements IDGenerator.
func (c *Counter) NextCode() int64 { return c.code.Add(1) }

// NextSequence implements IDGenerator.
func (c *Counter) NextSequence() int64 { return c.sequence.Add(1) }

// NewID implements IDGenerator.
func (c *Counter) NewID() string { return uuid.NewString() }

// Journal creates logs and owns what they share: identifiers, the
// optional sink, the store and the clock.
type Journal struct {
	store Store
	sink  Sink
	ids   IDGenerator
	now   func() time.Time
}

// JournalOption configures a Journal.
type JournalOption func(*Journal)

// WithSink attaches a notification sink.
func WithSink(s Sink) JournalOption {
	return func(j *Journal) { j.sink = s }
}

// WithIDGenerator replaces the default Counter.
func WithIDGenerator(g IDGenerator) JournalOption {
	return func(j *Journal) {
		if g != nil {
			j.ids = g
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) JournalOption {
	return func(j *Journal) {
		if now != nil {
			j.now = now
		}
	}
}

// NewJournal creates a Journal persisting to store. A nil store keeps
// logs in memory only.
func NewJournal(store Store, opts ...JournalOption) *Journal {
	j := &Journal{
		store: store,
		ids:   NewCounter(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Start opens a running log and registers it with the sink.
func (j *Journal) Start(operation, message string) *Log {
	l := &Log{
		journal:   j,
		id:        j.ids.NewID(),
		code:      j.ids.NextCode(),
		operation: operation,
		message:   message,
		running:   true,
		startTime: j.timestamp(),
		index:     -1,
	}
	if j.sink != nil {
		l.index = j.sink.Append(l.Snapshot())
	}
	return l
}

// LoadAll returns every persisted log. A nil Journal has none.
func (j *Journal) LoadAll(ctx context.Context) ([]Snapshot, error) {
	if j == nil || j.store == nil {
		return []Snapshot{}, nil
	}
	snapshots, err := j.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load operation logs: %w", err)
	}
	return snapshots, nil
}

func (j *Journal) timestamp() string {
	return j.now().Format(TimeFormat)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases name and joins its words with hyphens.
func Slug(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// FileName builds the persisted name of a log:
// {YYYYMMDDHHmmss}-{sequence}-{code}-{slug}.toml.
func FileName(at time.Time, sequence, code int64, operation string) string {
	return fmt.Sprintf("%s-%d-%d-%s.toml", at.Format("20060102150405"), sequence, code, Slug(operation))
}
