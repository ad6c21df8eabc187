// SPDX-License-Identifier: GPL-3.0-or-later

package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/netdata/rabbitmq-monitor/logger"
	"github.com/netdata/rabbitmq-monitor/pkg/matcher"
	"github.com/netdata/rabbitmq-monitor/pkg/web"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/dispatch"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/instance"

	"github.com/blang/semver/v4"
	"github.com/tidwall/gjson"
)

const (
	urlPathOverview = "/api/overview"
	urlPathQueues   = "/api/queues"
)

// the columns query parameter of /api/queues is not supported by older brokers
var minSupportedVersion = semver.MustParse("3.6.0")

// Factory is the dispatch.TaskFactory of collection tasks.
func Factory(inst *instance.Instance, exclude matcher.Matcher, groups []instance.QueueGroup) (dispatch.Task, error) {
	t, err := New(inst, exclude, groups)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func New(inst *instance.Instance, exclude matcher.Matcher, groups []instance.QueueGroup) (*Task, error) {
	if inst == nil {
		return nil, errors.New("nil instance")
	}

	cfg := inst.HTTPConfig()

	client, err := web.NewHTTPClient(cfg.ClientConfig)
	if err != nil {
		return nil, fmt.Errorf("create http client: %v", err)
	}

	return &Task{
		Logger: logger.New().With(
			slog.String("component", "collection task"),
			slog.String("instance", inst.DisplayName),
		),
		inst:       inst,
		request:    cfg.RequestConfig,
		httpClient: client,
		exclude:    exclude,
		groups:     groups,
	}, nil
}

// Task queries one broker node management API and computes its queue reporting plan.
type Task struct {
	*logger.Logger

	inst       *instance.Instance
	request    web.RequestConfig
	httpClient *http.Client

	exclude matcher.Matcher
	groups  []instance.QueueGroup
}

// Overview is the subset of /api/overview the task looks at.
type Overview struct {
	Version     string
	ClusterName string
	Node        string
}

func (t *Task) Instance() *instance.Instance { return t.inst }

// Run returns nil or an *instance.CollectionError.
func (t *Task) Run(ctx context.Context) error {
	ov, err := t.collectOverview(ctx)
	if err != nil {
		return &instance.CollectionError{Instance: t.inst.DisplayName, Err: err}
	}

	queues, err := t.collectQueueNames(ctx)
	if err != nil {
		return &instance.CollectionError{Instance: t.inst.DisplayName, Err: err}
	}

	plan := t.Plan(queues)

	t.Infof("node '%s' (cluster '%s', version '%s'): %d queue(s), %d group(s), %d reported individually, %d excluded",
		ov.Node, ov.ClusterName, ov.Version, len(queues), len(plan.Groups), len(plan.Individual), len(plan.Excluded))

	return nil
}

func (t *Task) collectOverview(ctx context.Context) (*Overview, error) {
	req, err := web.NewHTTPRequestWithPath(t.request, urlPathOverview)
	if err != nil {
		return nil, fmt.Errorf("create overview request: %v", err)
	}

	body, err := t.doOK(ctx, req)
	if err != nil {
		return nil, err
	}

	res := gjson.ParseBytes(body)
	if !res.IsObject() {
		return nil, fmt.Errorf("'%s' returned unexpected response: not a JSON object", req.URL.Path)
	}

	ov := &Overview{
		Version:     res.Get("rabbitmq_version").String(),
		ClusterName: res.Get("cluster_name").String(),
		Node:        res.Get("node").String(),
	}
	if ov.Version == "" {
		return nil, fmt.Errorf("'%s' returned unexpected response: no 'rabbitmq_version'", req.URL.Path)
	}

	if v, err := semver.ParseTolerant(ov.Version); err != nil {
		t.Debugf("can not parse RabbitMQ version '%s': %v", ov.Version, err)
	} else if v.LT(minSupportedVersion) {
		t.Warningf("RabbitMQ version %s is older than %s, queue listing may be incomplete", v, minSupportedVersion)
	}

	return ov, nil
}

func (t *Task) collectQueueNames(ctx context.Context) ([]string, error) {
	req, err := web.NewHTTPRequestWithPath(t.request, urlPathQueues, "columns=name")
	if err != nil {
		return nil, fmt.Errorf("create queues request: %v", err)
	}

	body, err := t.doOK(ctx, req)
	if err != nil {
		return nil, err
	}

	res := gjson.ParseBytes(body)
	if !res.IsArray() {
		return nil, fmt.Errorf("'%s' returned unexpected response: not a JSON array", req.URL.Path)
	}

	var names []string
	for _, q := range res.Array() {
		if name := q.Get("name").String(); name != "" {
			names = append(names, name)
		}
	}

	return names, nil
}

func (t *Task) doOK(ctx context.Context, req *http.Request) ([]byte, error) {
	resp, err := t.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("error on HTTP request '%s': %v", req.URL, err)
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("'%s' returned HTTP status code: %d", req.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error on reading response from '%s': %v", req.URL, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("'%s' returned invalid JSON", req.URL)
	}

	return body, nil
}

func closeBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}
}
