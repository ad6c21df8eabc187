// SPDX-License-Identifier: GPL-3.0-or-later

package queuegroup

import (
	"errors"
	"fmt"
	"strings"

	"github.com/netdata/rabbitmq-monitor/pkg/confopt"
	"github.com/netdata/rabbitmq-monitor/pkg/matcher"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/instance"
)

// GroupConfig is one entry of the queueGroups list.
type GroupConfig struct {
	GroupName           string           `yaml:"groupName" json:"groupName" jsonschema:"title=Group name,description=Unique name of the aggregated queue group."`
	QueueNameRegex      string           `yaml:"queueNameRegex" json:"queueNameRegex" jsonschema:"title=Queue name regex,description=RE2 expression matched against the whole queue name."`
	ShowIndividualStats confopt.FlexBool `yaml:"showIndividualStats,omitempty" json:"showIndividualStats,omitempty" jsonschema:"title=Show individual stats,description=Report member queues individually as well."`
}

var (
	errEmptyGroupName     = errors.New("groupName is required")
	errDuplicateGroupName = errors.New("duplicate groupName")
	errEmptyPattern       = errors.New("queueNameRegex is required")
)

// Compile compiles the queue groups preserving their order.
// It fails on the first invalid entry with an *instance.ConfigError naming it.
func Compile(cfgs []GroupConfig) ([]instance.QueueGroup, error) {
	groups := make([]instance.QueueGroup, 0, len(cfgs))
	seen := make(map[string]bool, len(cfgs))

	for i, cfg := range cfgs {
		name := strings.TrimSpace(cfg.GroupName)
		path := fmt.Sprintf("queueGroups[%d]", i)

		if name == "" {
			return nil, &instance.ConfigError{Path: path + ".groupName", Err: errEmptyGroupName}
		}

		path = fmt.Sprintf("queueGroups[%d] '%s'", i, name)

		if seen[name] {
			return nil, &instance.ConfigError{Path: path, Err: errDuplicateGroupName}
		}
		seen[name] = true

		if cfg.QueueNameRegex == "" {
			return nil, &instance.ConfigError{Path: path, Err: errEmptyPattern}
		}

		m, err := matcher.NewFullRegExpMatcher(cfg.QueueNameRegex)
		if err != nil {
			return nil, &instance.ConfigError{Path: path, Err: fmt.Errorf("invalid queueNameRegex: %v", err)}
		}

		groups = append(groups, instance.QueueGroup{
			Name:                name,
			Expr:                cfg.QueueNameRegex,
			Pattern:             m,
			ShowIndividualStats: cfg.ShowIndividualStats.Bool(),
		})
	}

	return groups, nil
}

// CompileExclude compiles the global exclusion pattern. An empty expression excludes nothing and returns nil.
func CompileExclude(expr string) (matcher.Matcher, error) {
	if expr == "" {
		return nil, nil
	}
	m, err := matcher.NewFullRegExpMatcher(expr)
	if err != nil {
		return nil, &instance.ConfigError{Path: "excludeQueueRegex", Err: fmt.Errorf("invalid pattern: %v", err)}
	}
	return m, nil
}
