package store

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// lockID derives a stable bigint advisory-lock key from a name, the
// deterministic-hash approach Postgres advisory locks require since they
// key on int64, not arbitrary strings.
func lockID(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}

// heldLocks tracks the pinned connection each acquired advisory lock is
// held on: pg_advisory_lock is session-scoped, so the pooled connection
// used to acquire it must be the same one used to release it, and must
// not be returned to the pool in between.
type lockHolder struct {
	mu    sync.Mutex
	conns map[string]*pgxpool.Conn
}

func newLockHolder() *lockHolder {
	return &lockHolder{conns: map[string]*pgxpool.Conn{}}
}

func (p *Postgres) TryAcquireScoutLock(ctx context.Context, lockName string) (bool, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("store: acquire conn: %w", err)
	}
	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, lockID(lockName)).Scan(&ok); err != nil {
		conn.Release()
		return false, fmt.Errorf("store: try advisory lock: %w", err)
	}
	if !ok {
		conn.Release()
		return false, nil
	}

	p.locks.mu.Lock()
	p.locks.conns[lockName] = conn
	p.locks.mu.Unlock()
	return true, nil
}

func (p *Postgres) ReleaseScoutLock(ctx context.Context, lockName string) error {
	p.locks.mu.Lock()
	conn, ok := p.locks.conns[lockName]
	delete(p.locks.conns, lockName)
	p.locks.mu.Unlock()
	if !ok {
		return nil
	}
	defer conn.Release()
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, lockID(lockName)); err != nil {
		return fmt.Errorf("store: release advisory lock: %w", err)
	}
	return nil
}
