// SPDX-License-Identifier: GPL-3.0-or-later

package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/netdata/rabbitmq-monitor/logger"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/dispatch"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/filelock"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

var (
	ErrDuplicateTask = errors.New("a task with this name is already submitted")
	ErrLocked        = errors.New("instance is locked by another process")
	ErrClosed        = errors.New("pool is closed")
)

type Config struct {
	// Size is the number of tasks that may run at the same time. Values < 1 mean 1.
	// Submit blocks while all workers are busy.
	Size int
	// LockDir, if set, enables cross-process instance locks in that directory.
	LockDir string
}

// New returns a pool for a single monitoring cycle: tasks get ctx, and the pool is done after Wait.
func New(ctx context.Context, cfg Config) *Pool {
	size := max(cfg.Size, 1)

	p := &Pool{
		Logger: logger.New().With(slog.String("component", "executor")),
		ctx:    ctx,
		pool:   pool.New().WithMaxGoroutines(size),
		names:  make(map[string]bool),
	}
	if cfg.LockDir != "" {
		p.locker = filelock.New(cfg.LockDir)
	}
	return p
}

// Pool runs submitted tasks concurrently. It implements dispatch.Provider.
type Pool struct {
	*logger.Logger

	ctx    context.Context
	pool   *pool.Pool
	locker *filelock.Locker

	mux     sync.Mutex
	closed  bool
	names   map[string]bool
	results []Result
}

// Result is the outcome of one task run.
type Result struct {
	Name     string
	Err      error
	Duration time.Duration
}

func (p *Pool) Submit(name string, task dispatch.Task) error {
	if task == nil {
		return fmt.Errorf("task '%s' is nil", name)
	}

	p.mux.Lock()
	switch {
	case p.closed:
		p.mux.Unlock()
		return ErrClosed
	case p.names[name]:
		p.mux.Unlock()
		return fmt.Errorf("%w: '%s'", ErrDuplicateTask, name)
	}
	p.names[name] = true
	p.mux.Unlock()

	if p.locker != nil {
		ok, err := p.locker.Lock(name)
		if err != nil {
			p.forget(name)
			return fmt.Errorf("acquire instance lock '%s': %v", name, err)
		}
		if !ok {
			p.forget(name)
			return fmt.Errorf("%w: '%s'", ErrLocked, name)
		}
	}

	p.pool.Go(func() { p.run(name, task) })

	return nil
}

func (p *Pool) run(name string, task dispatch.Task) {
	if p.locker != nil {
		defer p.locker.Unlock(name)
	}

	start := time.Now()

	var err error
	var pc panics.Catcher
	pc.Try(func() { err = task.Run(p.ctx) })
	if r := pc.Recovered(); r != nil {
		err = fmt.Errorf("task panicked: %w", r.AsError())
		p.Errorf("task '%s': %s", name, r.String())
	}

	res := Result{Name: name, Err: err, Duration: time.Since(start)}

	if err != nil {
		p.Warningf("task '%s' failed after %s: %v", name, res.Duration.Round(time.Millisecond), err)
	} else {
		p.Debugf("task '%s' finished in %s", name, res.Duration.Round(time.Millisecond))
	}

	p.mux.Lock()
	p.results = append(p.results, res)
	p.mux.Unlock()
}

// Wait blocks until every submitted task returns and closes the pool.
func (p *Pool) Wait() *Summary {
	p.mux.Lock()
	p.closed = true
	p.mux.Unlock()

	p.pool.Wait()

	p.mux.Lock()
	defer p.mux.Unlock()

	results := slices.Clone(p.results)
	slices.SortFunc(results, func(a, b Result) int { return strings.Compare(a.Name, b.Name) })

	return &Summary{Results: results}
}

func (p *Pool) forget(name string) {
	p.mux.Lock()
	defer p.mux.Unlock()
	delete(p.names, name)
}

// Summary is sorted by task name.
type Summary struct {
	Results []Result
}

func (s *Summary) Succeeded() []string {
	var names []string
	for _, r := range s.Results {
		if r.Err == nil {
			names = append(names, r.Name)
		}
	}
	return names
}

func (s *Summary) Failed() []string {
	var names []string
	for _, r := range s.Results {
		if r.Err != nil {
			names = append(names, r.Name)
		}
	}
	return names
}

// Err joins the errors of failed tasks.
func (s *Summary) Err() error {
	var errs []error
	for _, r := range s.Results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}
