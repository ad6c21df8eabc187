// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/netdata/rabbitmq-monitor/logger"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/confload"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/credential"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/dispatch"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/executor"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/instance"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/sizing"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/task"

	"github.com/gohugoio/hashstructure"
	"github.com/google/uuid"
)

// Config is an Agent configuration.
type Config struct {
	Name        string
	ConfigPath  string
	MetricsFile string
	LockDir     string
	// Workers caps the number of concurrently running tasks, 0 means one worker per instance.
	Workers     int
	UpdateEvery time.Duration
	Decrypter   credential.Decrypter
	// NewTask defaults to task.Factory.
	NewTask dispatch.TaskFactory
}

// Agent runs monitoring cycles.
type Agent struct {
	*logger.Logger

	Name        string
	ConfigPath  string
	MetricsFile string
	LockDir     string
	Workers     int
	UpdateEvery time.Duration

	decrypter credential.Decrypter
	newTask   dispatch.TaskFactory
	lastHash  atomic.Uint64
}

// New creates a new Agent.
func New(cfg Config) *Agent {
	a := &Agent{
		Logger: logger.New().With(
			slog.String("component", "agent"),
		),
		Name:        cfg.Name,
		ConfigPath:  cfg.ConfigPath,
		MetricsFile: cfg.MetricsFile,
		LockDir:     cfg.LockDir,
		Workers:     cfg.Workers,
		UpdateEvery: cfg.UpdateEvery,
		decrypter:   cfg.Decrypter,
		newTask:     cfg.NewTask,
	}
	if a.newTask == nil {
		a.newTask = task.Factory
	}
	if a.UpdateEvery <= 0 {
		a.UpdateEvery = time.Minute
	}
	return a
}

// CycleResult is the outcome of one monitoring cycle.
type CycleResult struct {
	ID            string
	ConfigChanged bool
	TaskCount     int
	Dispatch      *dispatch.Report
	Summary       *executor.Summary
}

// Run runs a cycle every UpdateEvery until ctx is done.
// SIGHUP or a change of the configuration file starts the next cycle right away.
func (a *Agent) Run(ctx context.Context) {
	a.Infof("instance is started: plugin '%s', config '%s', update every %s", a.Name, a.ConfigPath, a.UpdateEvery)
	defer func() { a.Notice("instance is stopped") }()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	changed := a.watchConfig(ctx)

	tk := time.NewTicker(a.UpdateEvery)
	defer tk.Stop()

	for {
		if _, err := a.RunCycle(ctx); err != nil {
			a.Errorf("cycle skipped: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-tk.C:
		case sig := <-hup:
			a.Infof("received %s signal (%d). Starting a new cycle", sig, sig)
		case <-changed:
			a.Noticef("configuration file '%s' changed. Starting a new cycle", a.ConfigPath)
		}
	}
}

// RunCycle loads the configuration, builds a fresh registry, dispatches one task per instance
// and waits for them. A configuration or precondition error aborts the cycle before any task is submitted.
func (a *Agent) RunCycle(ctx context.Context) (*CycleResult, error) {
	res := &CycleResult{ID: uuid.NewString()}
	cycleAttr := slog.String("cycle", res.ID)
	log := a.With(cycleAttr)

	if err := checkMetricsFile(a.MetricsFile); err != nil {
		return res, err
	}

	cfg, err := confload.Load(a.ConfigPath)
	if err != nil {
		return res, err
	}

	res.ConfigChanged = a.trackConfig(cfg)
	if res.ConfigChanged {
		log.Infof("using config: %s", cfg.String())
	}

	n, err := sizing.TaskCount(cfg)
	if err != nil {
		return res, err
	}
	res.TaskCount = n

	loader := confload.NewLoader(a.decrypter)
	loader.Logger = logger.New().With(slog.String("component", "config loader"), cycleAttr)

	reg, err := loader.Build(cfg)
	if err != nil {
		return res, err
	}

	size := n
	if a.Workers > 0 && a.Workers < size {
		size = a.Workers
	}

	pool := executor.New(ctx, executor.Config{Size: size, LockDir: a.LockDir})
	pool.Logger = logger.New().With(slog.String("component", "executor"), cycleAttr)

	d := dispatch.New(pool, a.newTask)
	d.Logger = logger.New().With(slog.String("component", "task dispatcher"), cycleAttr)

	report, err := d.Dispatch(reg)
	res.Dispatch = report
	res.Summary = pool.Wait()
	if err != nil {
		return res, err
	}

	log.Infof("cycle done: %d task(s) succeeded, %d failed, %d not dispatched",
		len(res.Summary.Succeeded()), len(res.Summary.Failed()), len(report.Failed))

	return res, nil
}

// trackConfig reports whether cfg differs from the configuration of the previous cycle.
func (a *Agent) trackConfig(cfg *confload.Config) bool {
	hash, err := hashstructure.Hash(cfg, nil)
	if err != nil {
		a.Debugf("failed to hash configuration: %v", err)
		return true
	}
	return a.lastHash.Swap(hash) != hash
}

var errIsDirectory = errors.New("is a directory")

func checkMetricsFile(path string) error {
	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return &instance.PreconditionError{What: "metrics definitions", Err: err}
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return &instance.PreconditionError{What: "metrics definitions", Err: err}
	}
	if fi.IsDir() {
		return &instance.PreconditionError{What: "metrics definitions", Err: fmt.Errorf("'%s' %w", path, errIsDirectory)}
	}
	return nil
}
