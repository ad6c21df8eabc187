// SPDX-License-Identifier: GPL-3.0-or-later

package instance

import (
	"slices"

	"github.com/netdata/rabbitmq-monitor/pkg/matcher"
)

// Registry is the resolved snapshot of one monitoring cycle.
// It is never mutated after NewRegistry returns.
type Registry struct {
	instances []Instance
	exclude   matcher.Matcher
	groups    []QueueGroup
}

// NewRegistry copies its arguments, the caller may reuse them afterwards.
// A nil exclude means no queue is excluded.
func NewRegistry(instances []Instance, exclude matcher.Matcher, groups []QueueGroup) *Registry {
	return &Registry{
		instances: slices.Clone(instances),
		exclude:   exclude,
		groups:    slices.Clone(groups),
	}
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.instances)
}

// Instances returns read-only references to the descriptors in configuration order.
func (r *Registry) Instances() []*Instance {
	if r == nil {
		return nil
	}
	out := make([]*Instance, len(r.instances))
	for i := range r.instances {
		out[i] = &r.instances[i]
	}
	return out
}

// Exclude returns the global exclusion pattern, nil if none is configured.
func (r *Registry) Exclude() matcher.Matcher {
	if r == nil {
		return nil
	}
	return r.exclude
}

// Excluded reports whether queue matches the global exclusion pattern.
func (r *Registry) Excluded(queue string) bool {
	ex := r.Exclude()
	return ex != nil && ex.MatchString(queue)
}

// QueueGroups returns a copy of the queue groups in configuration order.
func (r *Registry) QueueGroups() []QueueGroup {
	if r == nil {
		return nil
	}
	return slices.Clone(r.groups)
}
