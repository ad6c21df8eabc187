// SPDX-License-Identifier: GPL-3.0-or-later

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/netdata/rabbitmq-monitor/logger"
	"github.com/netdata/rabbitmq-monitor/pkg/matcher"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/instance"

	"github.com/sourcegraph/conc/panics"
)

type (
	// Task is one unit of monitoring work bound to a single instance.
	Task interface {
		Run(ctx context.Context) error
	}
	// Provider runs submitted tasks. Submit must not block on task completion.
	Provider interface {
		Submit(name string, task Task) error
	}
	// TaskFactory builds the task of one instance. exclude may be nil.
	TaskFactory func(inst *instance.Instance, exclude matcher.Matcher, groups []instance.QueueGroup) (Task, error)
)

var (
	errNoRegistry = errors.New("registry is not built")
	errNoProvider = errors.New("execution provider is not set")
	errNoFactory  = errors.New("task factory is not set")
)

func New(p Provider, f TaskFactory) *Dispatcher {
	return &Dispatcher{
		Logger:   logger.New().With(slog.String("component", "task dispatcher")),
		provider: p,
		newTask:  f,
	}
}

// Dispatcher submits one task per registry instance. It keeps no state between Dispatch calls.
type Dispatcher struct {
	*logger.Logger

	provider Provider
	newTask  TaskFactory
}

// Dispatch submits the tasks in registry order and returns without waiting for them.
// A failure to build or submit one instance's task is recorded in the report and does not
// stop the remaining submissions. The returned error is set only when dispatch cannot start.
func (d *Dispatcher) Dispatch(reg *instance.Registry) (*Report, error) {
	switch {
	case reg == nil:
		return nil, &instance.PreconditionError{What: "dispatch", Err: errNoRegistry}
	case d.provider == nil:
		return nil, &instance.PreconditionError{What: "dispatch", Err: errNoProvider}
	case d.newTask == nil:
		return nil, &instance.PreconditionError{What: "dispatch", Err: errNoFactory}
	}

	report := &Report{}

	for _, inst := range reg.Instances() {
		if err := d.dispatchOne(inst, reg.Exclude(), reg.QueueGroups()); err != nil {
			d.Warningf("instance '%s': %v", inst.DisplayName, err)
			report.Failed = append(report.Failed, Failure{Name: inst.DisplayName, Err: err})
			continue
		}
		d.Debugf("instance '%s': task submitted", inst.DisplayName)
		report.Submitted = append(report.Submitted, inst.DisplayName)
	}

	d.Infof("dispatched %d task(s), %d failed", len(report.Submitted), len(report.Failed))

	return report, nil
}

func (d *Dispatcher) dispatchOne(inst *instance.Instance, exclude matcher.Matcher, groups []instance.QueueGroup) (err error) {
	var pc panics.Catcher
	pc.Try(func() {
		var task Task
		if task, err = d.newTask(inst, exclude, groups); err != nil {
			err = fmt.Errorf("create task: %w", err)
			return
		}
		if err = d.provider.Submit(inst.DisplayName, task); err != nil {
			err = fmt.Errorf("submit task: %w", err)
		}
	})
	if r := pc.Recovered(); r != nil {
		return fmt.Errorf("dispatch panicked: %w", r.AsError())
	}
	return err
}

// Failure is the dispatch error of one instance.
type Failure struct {
	Name string
	Err  error
}

// Report is the outcome of one dispatch pass.
type Report struct {
	Submitted []string
	Failed    []Failure
}

// Err joins the per-instance failures, nil if every task was submitted.
func (r *Report) Err() error {
	if r == nil || len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("instance '%s': %w", f.Name, f.Err))
	}
	return errors.Join(errs...)
}
