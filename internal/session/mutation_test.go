package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID       string
	Archived bool
}

func (i item) EntityID() string { return i.ID }

func loaded(t *testing.T, c *Cache, resource string, items []item) Key {
	t.Helper()
	key := c.Key(resource)
	_, err := c.Load(context.Background(), key, staticFetch(items))
	require.NoError(t, err)
	return key
}

func valueOf(t *testing.T, c *Cache, key Key) []item {
	t.Helper()
	e, err := c.Get(key)
	require.NoError(t, err)
	v, _ := e.Value.([]item)
	return v
}

func TestMutateRollsBackOnRemoteFailure(t *testing.T) {
	c := NewCache("alice", 1, Config{})
	ctrl := NewController(c, ControllerConfig{SettleDelay: -1})
	defer ctrl.Close()

	before := []item{{ID: "p1"}, {ID: "p2"}}
	key := loaded(t, c, "prompts", before)

	remoteErr := errors.New("server error (500)")
	var sawPrediction []item
	tx, err := Mutate(context.Background(), ctrl, key, RemoveByID[item]("p1"), func(context.Context) error {
		sawPrediction = valueOf(t, c, key)
		return remoteErr
	})

	require.Error(t, err)
	var mErr *MutationError
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, key, mErr.Key)
	assert.True(t, errors.Is(err, remoteErr))

	assert.Equal(t, TxRolledBack, tx.State)
	assert.Equal(t, []item{{ID: "p2"}}, sawPrediction)
	assert.Equal(t, before, valueOf(t, c, key))
	assert.Equal(t, before, tx.Snapshot)
}

func TestMutateCommitsAndRefreshesAliases(t *testing.T) {
	c := NewCache("alice", 1, Config{})
	ctrl := NewController(c, ControllerConfig{SettleDelay: 10 * time.Millisecond})
	defer ctrl.Close()

	key := loaded(t, c, "prompts", []item{{ID: "p1"}, {ID: "p2"}})

	var archivedFetches int32
	archivedKey := c.Key("prompts?include_archived=true")
	_, err := c.Load(context.Background(), archivedKey, func(context.Context) (any, error) {
		n := atomic.AddInt32(&archivedFetches, 1)
		if n == 1 {
			return []item{{ID: "p1"}, {ID: "p2"}}, nil
		}
		return []item{{ID: "p1", Archived: true}, {ID: "p2"}}, nil
	})
	require.NoError(t, err)

	archive := func(i item) item {
		i.Archived = true
		return i
	}
	tx, err := Mutate(context.Background(), ctrl, key, UpdateByID[item]("p1", archive), func(context.Context) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, TxCommitted, tx.State)
	assert.Equal(t, []item{{ID: "p1", Archived: true}, {ID: "p2"}}, tx.Predicted)

	ctrl.Wait()
	assert.EqualValues(t, 2, atomic.LoadInt32(&archivedFetches))
	assert.Equal(t, []item{{ID: "p1", Archived: true}, {ID: "p2"}}, valueOf(t, c, archivedKey))
}

func TestMutateRequiresLoadedValue(t *testing.T) {
	c := NewCache("alice", 1, Config{})
	ctrl := NewController(c, ControllerConfig{})
	defer ctrl.Close()

	called := false
	_, err := Mutate(context.Background(), ctrl, c.Key("prompts"), RemoveByID[item]("p1"), func(context.Context) error {
		called = true
		return nil
	})
	assert.True(t, errors.Is(err, ErrNotLoaded))
	assert.False(t, called)
}

func TestMutateSerializesSameKey(t *testing.T) {
	c := NewCache("alice", 1, Config{})
	ctrl := NewController(c, ControllerConfig{SettleDelay: time.Hour})
	defer ctrl.Close()
	key := loaded(t, c, "prompts", []item{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}})

	firstInRemote := make(chan struct{})
	releaseFirst := make(chan struct{})
	firstDone := make(chan error)
	go func() {
		_, err := Mutate(context.Background(), ctrl, key, RemoveByID[item]("p1"), func(context.Context) error {
			close(firstInRemote)
			<-releaseFirst
			return errors.New("rejected")
		})
		firstDone <- err
	}()
	<-firstInRemote

	// The second mutation cannot start while the first holds the key.
	waitCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := Mutate(waitCtx, ctrl, key, RemoveByID[item]("p2"), func(context.Context) error { return nil })
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	close(releaseFirst)
	require.Error(t, <-firstDone)

	// After rollback the second mutation predicts from the restored list.
	tx, err := Mutate(context.Background(), ctrl, key, RemoveByID[item]("p2"), func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, []item{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}}, tx.Snapshot)
	assert.Equal(t, []item{{ID: "p1"}, {ID: "p3"}}, valueOf(t, c, key))
}

func TestFetchDuringMutationDoesNotClobberPrediction(t *testing.T) {
	c := NewCache("alice", 1, Config{})
	ctrl := NewController(c, ControllerConfig{SettleDelay: -1})
	defer ctrl.Close()
	key := loaded(t, c, "prompts", []item{{ID: "p1"}})

	_, err := Mutate(context.Background(), ctrl, key, Prepend(item{ID: "p0"}), func(ctx context.Context) error {
		if _, err := c.Refresh(ctx, key); err != nil {
			return err
		}
		assert.Equal(t, []item{{ID: "p0"}, {ID: "p1"}}, valueOf(t, c, key))
		return nil
	})
	require.NoError(t, err)
	ctrl.Wait()
	assert.Equal(t, []item{{ID: "p1"}}, valueOf(t, c, key), "post-commit refresh returns the server's list")
}

func TestImmediateSettleAlwaysRefreshes(t *testing.T) {
	for i := 0; i < 200; i++ {
		c := NewCache("alice", 1, Config{})
		ctrl := NewController(c, ControllerConfig{SettleDelay: -1})

		var fetches int32
		key := c.Key("prompts")
		_, err := c.Load(context.Background(), key, func(context.Context) (any, error) {
			atomic.AddInt32(&fetches, 1)
			return []item{{ID: "p1"}}, nil
		})
		require.NoError(t, err)

		_, err = Mutate(context.Background(), ctrl, key, Prepend(item{ID: "p0"}), func(context.Context) error { return nil })
		require.NoError(t, err)
		ctrl.Wait()

		require.Equal(t, int32(2), atomic.LoadInt32(&fetches), "run %d: commit was not followed by a refresh", i)
		assert.Equal(t, []item{{ID: "p1"}}, valueOf(t, c, key))
		ctrl.Close()
	}
}

func TestControllerCloseCancelsPendingRefresh(t *testing.T) {
	c := NewCache("alice", 1, Config{})
	ctrl := NewController(c, ControllerConfig{SettleDelay: time.Hour})
	key := loaded(t, c, "prompts", []item{{ID: "p1"}})

	_, err := Mutate(context.Background(), ctrl, key, RemoveByID[item]("p1"), func(context.Context) error { return nil })
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		ctrl.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not abandon the pending refresh")
	}
	assert.Empty(t, valueOf(t, c, key))
}

func TestMutateAfterIdentitySwitch(t *testing.T) {
	m := NewManager(Config{})
	alice := m.Resolve("alice")
	ctrl := NewController(alice, ControllerConfig{SettleDelay: -1})
	defer ctrl.Close()
	key := loaded(t, alice, "prompts", []item{{ID: "p1"}})

	m.Resolve("bob")
	_, err := Mutate(context.Background(), ctrl, key, RemoveByID[item]("p1"), func(context.Context) error { return nil })
	assert.True(t, errors.Is(err, ErrEpochClosed))
}
