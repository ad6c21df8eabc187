// SPDX-License-Identifier: GPL-3.0-or-later

package task

import (
	"github.com/netdata/rabbitmq-monitor/pkg/matcher"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/instance"
)

type (
	// QueuePlan tells which queues are aggregated into which group and which are reported on their own.
	QueuePlan struct {
		Groups     []GroupQueues
		Individual []string
		Excluded   []string
	}
	GroupQueues struct {
		Name   string
		Queues []string
	}
)

// Plan classifies queues:
//   - a queue belongs to every group whose pattern matches it, excluded or not;
//   - an excluded queue is never reported individually;
//   - any other queue is reported individually unless all the groups it belongs to hide their members.
func (t *Task) Plan(queues []string) QueuePlan {
	return newPlanner(t.exclude, t.groups).plan(queues)
}

type planner struct {
	groups     []instance.QueueGroup
	exclude    matcher.Matcher
	individual matcher.Matcher
}

func newPlanner(exclude matcher.Matcher, groups []instance.QueueGroup) *planner {
	if exclude == nil {
		exclude = matcher.FALSE()
	}

	anyGroup, anyShown := matcher.FALSE(), matcher.FALSE()
	for _, g := range groups {
		if g.Pattern == nil {
			continue
		}
		anyGroup = matcher.Or(anyGroup, g.Pattern)
		if g.ShowIndividualStats {
			anyShown = matcher.Or(anyShown, g.Pattern)
		}
	}

	return &planner{
		groups:     groups,
		exclude:    exclude,
		individual: matcher.And(matcher.Not(exclude), matcher.Or(matcher.Not(anyGroup), anyShown)),
	}
}

func (p *planner) plan(queues []string) QueuePlan {
	var plan QueuePlan

	plan.Groups = make([]GroupQueues, len(p.groups))
	for i, g := range p.groups {
		plan.Groups[i].Name = g.Name
	}

	for _, q := range queues {
		for i := range p.groups {
			if p.groups[i].Match(q) {
				plan.Groups[i].Queues = append(plan.Groups[i].Queues, q)
			}
		}
		switch {
		case p.exclude.MatchString(q):
			plan.Excluded = append(plan.Excluded, q)
		case p.individual.MatchString(q):
			plan.Individual = append(plan.Individual, q)
		}
	}

	return plan
}
