package concurrency

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"
)

// Semaphore 信号量
type Semaphore struct {
	capacity int
	tickets  chan struct{}
}

// NewSemaphore 创建信号量
func NewSemaphore(capacity int) *Semaphore {
	return &Semaphore{
		capacity: capacity,
		tickets:  make(chan struct{}, capacity),
	}
}

// Acquire blocks until a ticket is free or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.tickets <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire 非阻塞获取
func (s *Semaphore) TryAcquire() bool {
	select {
	case s.tickets <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release 释放信号量
func (s *Semaphore) Release() {
	<-s.tickets
}

// Capacity 容量
func (s *Semaphore) Capacity() int {
	return s.capacity
}

// InUse 已占用数量
func (s *Semaphore) InUse() int {
	return len(s.tickets)
}

// Limiter bounds how many functions run at once. Callers wait at most
// acquireTimeout for a slot.
type Limiter struct {
	semaphore      *Semaphore
	acquireTimeout time.Duration
	waiting        atomic.Int64
}

// NewLimiter creates a limiter. maxConcurrent <= 0 uses GOMAXPROCS.
func NewLimiter(maxConcurrent int, acquireTimeout time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.GOMAXPROCS(0)
	}
	return &Limiter{
		semaphore:      NewSemaphore(maxConcurrent),
		acquireTimeout: acquireTimeout,
	}
}

// Execute runs fn once a slot is free. It returns the ctx error, or
// context.DeadlineExceeded when the acquire timeout elapsed first.
func (l *Limiter) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}

// Acquire takes a slot; pair every successful call with Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.semaphore.TryAcquire() {
		return nil
	}

	l.waiting.Add(1)
	defer l.waiting.Add(-1)

	waitCtx := ctx
	if l.acquireTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.acquireTimeout)
		defer cancel()
	}
	return l.semaphore.Acquire(waitCtx)
}

// Release frees a slot.
func (l *Limiter) Release() {
	l.semaphore.Release()
}

// Stats is a snapshot of limiter usage.
type Stats struct {
	Capacity int   `json:"capacity"`
	InUse    int   `json:"inUse"`
	Waiting  int64 `json:"waiting"`
}

func (l *Limiter) Stats() Stats {
	return Stats{
		Capacity: l.semaphore.Capacity(),
		InUse:    l.semaphore.InUse(),
		Waiting:  l.waiting.Load(),
	}
}
