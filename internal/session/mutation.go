package session

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultSettleDelay is how long after a committed mutation the affected
// collections are fetched again.
const DefaultSettleDelay = time.Second

// TxState is the lifecycle state of an optimistic transaction.
type TxState int

const (
	TxIdle TxState = iota
	TxOptimistic
	TxCommitted
	TxRolledBack
)

func (s TxState) String() string {
	switch s {
	case TxIdle:
		return "idle"
	case TxOptimistic:
		return "optimistic"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Transaction records one optimistic mutation of a cached collection.
type Transaction[T any] struct {
	ID        string
	Key       Key
	Snapshot  []T
	Predicted []T
	State     TxState
}

// MutationError reports a remote mutation that failed and was rolled back.
type MutationError struct {
	Key Key
	Err error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("mutation of %s failed: %v", e.Key.Resource, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	// SettleDelay before re-fetching after a commit (0 = DefaultSettleDelay, <0 = immediately).
	SettleDelay time.Duration

	Logger *zap.SugaredLogger
}

// Controller applies optimistic mutations to a Cache.
// Mutations of one key are serialized; different keys proceed independently.
type Controller struct {
	cache  *Cache
	settle time.Duration
	logger *zap.SugaredLogger
	locks  keyLocks

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewController creates a controller over cache.
func NewController(cache *Cache, config ControllerConfig) *Controller {
	settle := config.SettleDelay
	if settle == 0 {
		settle = DefaultSettleDelay
	}
	if settle < 0 {
		settle = 0
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		cache:  cache,
		settle: settle,
		logger: logger,
		locks:  keyLocks{held: make(map[Key]chan struct{})},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Mutate applies predict to the cached collection at key, runs remote, and
// either commits the prediction or restores the exact prior value.
//
// The predicted value is visible to readers of the cache as soon as Mutate
// has taken the key. On success a re-fetch of every alias of key is
// scheduled after the settle delay. On failure the returned error is a
// *MutationError wrapping remote's error, and the transaction is rolled back.
func Mutate[T any](ctx context.Context, c *Controller, key Key, predict func([]T) []T, remote func(context.Context) error) (*Transaction[T], error) {
	tx := &Transaction[T]{ID: uuid.NewString(), Key: key, State: TxIdle}

	unlock, err := c.locks.lock(ctx, key)
	if err != nil {
		return tx, errors.Wrapf(err, "waiting for %s", key.Resource)
	}
	defer unlock()

	entry, err := c.cache.hold(key)
	if err != nil {
		return tx, err
	}
	held := true
	release := func() {
		if held {
			held = false
			c.cache.release(key)
		}
	}
	defer release()

	current, ok := entry.Value.([]T)
	if !ok && entry.Value != nil {
		return tx, errors.Newf("cached value for %s is %T, not %T", key.Resource, entry.Value, current)
	}

	tx.Snapshot = slices.Clone(current)
	tx.Predicted = predict(slices.Clone(current))
	c.cache.write(key, tx.Predicted)
	tx.State = TxOptimistic
	c.logger.Debugw("optimistic write", "tx", tx.ID, "key", key.String(), "before", len(tx.Snapshot), "after", len(tx.Predicted))

	if err := remote(ctx); err != nil {
		c.cache.write(key, tx.Snapshot)
		release()
		tx.State = TxRolledBack
		c.logger.Warnw("mutation rolled back", "tx", tx.ID, "key", key.String(), "error", err)
		return tx, &MutationError{Key: key, Err: err}
	}

	tx.State = TxCommitted
	// Refresh skips held keys, so release first.
	release()
	c.scheduleRefresh(c.cache.Aliases(key))
	return tx, nil
}

func (c *Controller) scheduleRefresh(keys []Key) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if c.settle > 0 {
			timer := time.NewTimer(c.settle)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-c.ctx.Done():
				return
			}
		}
		for _, k := range keys {
			if c.ctx.Err() != nil {
				return
			}
			if _, err := c.cache.Refresh(c.ctx, k); err != nil {
				c.logger.Debugw("refresh after mutation failed", "key", k.String(), "error", err)
			}
		}
	}()
}

// Wait blocks until every scheduled refresh has run.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close abandons pending refreshes and waits for running ones to stop.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}

// keyLocks is a set of per-key mutexes whose acquisition honours a context.
type keyLocks struct {
	mu   sync.Mutex
	held map[Key]chan struct{}
}

func (l *keyLocks) lock(ctx context.Context, k Key) (func(), error) {
	for {
		l.mu.Lock()
		ch, busy := l.held[k]
		if !busy {
			ch = make(chan struct{})
			l.held[k] = ch
			l.mu.Unlock()
			return func() {
				l.mu.Lock()
				delete(l.held, k)
				l.mu.Unlock()
				close(ch)
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Identifiable is implemented by entities with a server-assigned id.
type Identifiable interface {
	EntityID() string
}

// RemoveByID predicts the removal of the entity with id.
func RemoveByID[T Identifiable](id string) func([]T) []T {
	return func(items []T) []T {
		return slices.DeleteFunc(items, func(item T) bool {
			return item.EntityID() == id
		})
	}
}

// UpdateByID predicts an in-place change to the entity with id.
func UpdateByID[T Identifiable](id string, update func(T) T) func([]T) []T {
	return func(items []T) []T {
		for i, item := range items {
			if item.EntityID() == id {
				items[i] = update(item)
			}
		}
		return items
	}
}

// Prepend predicts the insertion of item at the head of the collection.
func Prepend[T any](item T) func([]T) []T {
	return func(items []T) []T {
		return append([]T{item}, items...)
	}
}
