// SPDX-License-Identifier: GPL-3.0-or-later

package task

import (
	"testing"

	"github.com/netdata/rabbitmq-monitor/pkg/matcher"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/instance"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask_Plan(t *testing.T) {
	queues := []string{"orders.eu", "orders.us", "amq.gen-1", "celery", "billing"}

	tests := map[string]struct {
		exclude matcher.Matcher
		groups  func(t *testing.T) []instance.QueueGroup
		want    QueuePlan
	}{
		"no groups no exclusion": {
			want: QueuePlan{
				Groups:     []GroupQueues{},
				Individual: queues,
			},
		},
		"exclusion only": {
			exclude: matcher.Must(matcher.NewFullRegExpMatcher(`amq\..*`)),
			want: QueuePlan{
				Groups:     []GroupQueues{},
				Individual: []string{"orders.eu", "orders.us", "celery", "billing"},
				Excluded:   []string{"amq.gen-1"},
			},
		},
		"group hides its members": {
			groups: func(t *testing.T) []instance.QueueGroup {
				return []instance.QueueGroup{newGroup(t, "orders", `orders\..*`, false)}
			},
			want: QueuePlan{
				Groups:     []GroupQueues{{Name: "orders", Queues: []string{"orders.eu", "orders.us"}}},
				Individual: []string{"amq.gen-1", "celery", "billing"},
			},
		},
		"group shows its members": {
			groups: func(t *testing.T) []instance.QueueGroup {
				return []instance.QueueGroup{newGroup(t, "orders", `orders\..*`, true)}
			},
			want: QueuePlan{
				Groups:     []GroupQueues{{Name: "orders", Queues: []string{"orders.eu", "orders.us"}}},
				Individual: queues,
			},
		},
		"excluded queue still aggregated": {
			exclude: matcher.Must(matcher.NewFullRegExpMatcher(`orders\.us`)),
			groups: func(t *testing.T) []instance.QueueGroup {
				return []instance.QueueGroup{newGroup(t, "orders", `orders\..*`, true)}
			},
			want: QueuePlan{
				Groups:     []GroupQueues{{Name: "orders", Queues: []string{"orders.eu", "orders.us"}}},
				Individual: []string{"orders.eu", "amq.gen-1", "celery", "billing"},
				Excluded:   []string{"orders.us"},
			},
		},
		"overlapping groups, one shows": {
			groups: func(t *testing.T) []instance.QueueGroup {
				return []instance.QueueGroup{
					newGroup(t, "all-orders", `orders\..*`, false),
					newGroup(t, "eu", `.*\.eu`, true),
				}
			},
			want: QueuePlan{
				Groups: []GroupQueues{
					{Name: "all-orders", Queues: []string{"orders.eu", "orders.us"}},
					{Name: "eu", Queues: []string{"orders.eu"}},
				},
				Individual: []string{"orders.eu", "amq.gen-1", "celery", "billing"},
			},
		},
		"group without members": {
			groups: func(t *testing.T) []instance.QueueGroup {
				return []instance.QueueGroup{newGroup(t, "none", `nothing`, false)}
			},
			want: QueuePlan{
				Groups:     []GroupQueues{{Name: "none"}},
				Individual: queues,
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var groups []instance.QueueGroup
			if test.groups != nil {
				groups = test.groups(t)
			}

			tk, err := New(&instance.Instance{DisplayName: "A", Host: "localhost", Port: 15672}, test.exclude, groups)
			require.NoError(t, err)

			assert.Equal(t, test.want, tk.Plan(queues))
		})
	}
}
