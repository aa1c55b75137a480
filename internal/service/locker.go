package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	pkgerrors "github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/errors"
)

// ErrBatchBusy 同一站点同一年的日历正被其他批量操作写入
var ErrBatchBusy = fmt.Errorf("日历正被其他批量操作占用: %w", pkgerrors.ErrConflict)

// Locker 按 key 互斥，返回的 unlock 必须调用
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// lockBackend 分布式锁后端（pkg/redis.Client 实现）
type lockBackend interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

const lockPollInterval = 50 * time.Millisecond

// ── 进程内锁 ──

type localLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	wait  time.Duration
}

// NewLocalLocker 进程内按 key 互斥，等待超过 wait 返回 ErrBatchBusy
func NewLocalLocker(wait time.Duration) Locker {
	return &localLocker{slots: make(map[string]chan struct{}), wait: wait}
}

func (l *localLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *localLocker) Lock(ctx context.Context, key string) (func(), error) {
	ch := l.slot(key)
	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-timer.C:
		return nil, ErrBatchBusy
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ── Redis 锁 ──

type redisLocker struct {
	backend lockBackend
	local   Locker
	ttl     time.Duration
	wait    time.Duration
	logger  *zap.Logger
}

// NewLocker 优先使用 Redis 锁；backend 为空或 Redis 不可用时退化为进程内锁
func NewLocker(backend lockBackend, ttl, wait time.Duration, logger *zap.Logger) Locker {
	local := NewLocalLocker(wait)
	if backend == nil {
		return local
	}
	return &redisLocker{backend: backend, local: local, ttl: ttl, wait: wait, logger: logger}
}

func (l *redisLocker) Lock(ctx context.Context, key string) (func(), error) {
	deadline := time.Now().Add(l.wait)
	for {
		token, ok, err := l.backend.AcquireLock(ctx, key, l.ttl)
		if err != nil {
			l.logger.Warn("Redis 锁不可用，退化为进程内锁", zap.String("key", key), zap.Error(err))
			return l.local.Lock(ctx, key)
		}
		if ok {
			return func() {
				// 请求上下文可能已取消，释放锁使用独立上下文
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := l.backend.ReleaseLock(releaseCtx, key, token); err != nil {
					l.logger.Warn("释放 Redis 锁失败", zap.String("key", key), zap.Error(err))
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrBatchBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}
