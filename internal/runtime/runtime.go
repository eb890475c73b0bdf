package runtime

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	cfgpkg "github.com/rzbill/flume/internal/config"
	"github.com/rzbill/flume/internal/queue"
	pebblestore "github.com/rzbill/flume/internal/storage/pebble"
	logpkg "github.com/rzbill/flume/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	Logger        logpkg.Logger
}

// Runtime wires storage and config for a single-node instance and caches
// one handle per opened queue.
type Runtime struct {
	db     *pebblestore.DB
	config cfgpkg.Config
	logger logpkg.Logger
	nameRE *regexp.Regexp

	mu     sync.Mutex
	queues map[string]*queue.Queue
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	nameRE, err := regexp.Compile(opts.Config.NameRegex)
	if err != nil {
		return nil, fmt.Errorf("runtime: bad name regex: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.ErrorLevel))
	}
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       opts.DataDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		LockWait:      time.Duration(opts.Config.LockWaitMs) * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	return &Runtime{
		db:     db,
		config: opts.Config,
		logger: logger,
		nameRE: nameRE,
		queues: make(map[string]*queue.Queue),
	}, nil
}

// Close stops background work and closes underlying resources.
func (r *Runtime) Close() error {
	r.mu.Lock()
	for _, q := range r.queues {
		q.StopReclaimer()
	}
	r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple storage health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("runtime: db not open")
	}
	txn, err := r.db.Begin(ctx, true)
	if err != nil {
		return err
	}
	defer txn.Abort()
	it, err := txn.Scan(nil, nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// OpenQueue returns a handle to the named queue, creating it if absent.
// Handles are cached per name; a second OpenQueue with a different mode
// fails like reopening the queue would.
func (r *Runtime) OpenQueue(name string, mode queue.Mode) (*queue.Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.queues[name]; ok {
		if q.Mode() != mode {
			return nil, fmt.Errorf("%w: queue %q is %s", queue.ErrModeMismatch, name, q.Mode())
		}
		return q, nil
	}
	d := r.config.QueueDefaults
	q, err := queue.Open(r.db, name, mode, queue.Options{
		MaxTxnRetries:   d.MaxTxnRetries,
		RetryBackoff:    time.Duration(d.RetryBackoffMs) * time.Millisecond,
		ReclaimChunk:    d.ReclaimChunk,
		ReclaimEveryOps: d.ReclaimEveryOps,
		PayloadMaxBytes: d.PayloadMaxBytes,
		MaxEntries:      d.MaxEntries,
		NameRE:          r.nameRE,
		Logger:          r.logger,
	})
	if err != nil {
		return nil, err
	}
	r.queues[name] = q
	return q, nil
}

// Queues lists every queue recorded in the catalog.
func (r *Runtime) Queues(ctx context.Context) ([]queue.Info, error) {
	return queue.List(ctx, r.db)
}

// DefaultStartPolicy returns the configured start policy for newly
// registered broadcast consumers.
func (r *Runtime) DefaultStartPolicy() (queue.StartPolicy, error) {
	return queue.ParseStartPolicy(r.config.QueueDefaults.RegisterStart)
}
