// SPDX-License-Identifier: GPL-3.0-or-later

// Package sizing reports the number of tasks a configuration will produce,
// so the execution pool can be provisioned before dispatch.
package sizing

import (
	"errors"

	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/confload"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/instance"
)

var errNoServersSection = errors.New("'servers' section is absent")

// TaskCount returns the number of entries in the servers section.
// It reads the document, not a built registry: a successful build of the same document
// dispatches exactly this many tasks.
func TaskCount(cfg *confload.Config) (int, error) {
	if cfg == nil || cfg.Servers == nil {
		return 0, &instance.PreconditionError{What: "task count", Err: errNoServersSection}
	}
	return len(*cfg.Servers), nil
}
