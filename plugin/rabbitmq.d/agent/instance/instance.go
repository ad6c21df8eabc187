// SPDX-License-Identifier: GPL-3.0-or-later

package instance

import (
	"fmt"
	"log/slog"
	"maps"
	"net"
	"strconv"
	"time"

	"github.com/netdata/rabbitmq-monitor/pkg/confopt"
	"github.com/netdata/rabbitmq-monitor/pkg/matcher"
	"github.com/netdata/rabbitmq-monitor/pkg/web"
)

const (
	DefaultHost           = "localhost"
	DefaultUsername       = "guest"
	DefaultPort           = 15672
	DefaultConnectTimeout = 10000 * time.Millisecond
	DefaultSocketTimeout  = 10000 * time.Millisecond
)

// Instance is the resolved connection profile of one monitored broker node.
// DisplayName is the task identity key and is unique within a Registry.
type Instance struct {
	DisplayName    string
	Host           string
	Username       string
	Password       string
	Port           int
	UseSSL         bool
	TLSSkipVerify  bool
	ProxyURL       string
	Headers        map[string]string
	ConnectTimeout time.Duration
	SocketTimeout  time.Duration
}

// HasPassword reports whether a credential override was resolved for the instance.
func (i *Instance) HasPassword() bool { return i.Password != "" }

// URL returns the base URL of the node management API.
func (i *Instance) URL() string {
	scheme := "http"
	if i.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(i.Host, strconv.Itoa(i.Port)))
}

// HTTPConfig maps the descriptor onto the management API client configuration.
// The connect timeout bounds dialing and the socket timeout bounds the whole request.
// Redirects are not followed: the management API answers directly.
func (i *Instance) HTTPConfig() web.HTTPConfig {
	return web.HTTPConfig{
		RequestConfig: web.RequestConfig{
			URL:      i.URL(),
			Username: i.Username,
			Password: i.Password,
			Headers:  maps.Clone(i.Headers),
		},
		ClientConfig: web.ClientConfig{
			Timeout:            confopt.Duration(i.SocketTimeout),
			DialTimeout:        confopt.Duration(i.ConnectTimeout),
			NotFollowRedirect:  true,
			ProxyURL:           i.ProxyURL,
			InsecureSkipVerify: i.TLSSkipVerify,
		},
	}
}

func (i *Instance) LogValue() slog.Value {
	password := ""
	if i.HasPassword() {
		password = "****"
	}
	return slog.GroupValue(
		slog.String("display_name", i.DisplayName),
		slog.String("url", i.URL()),
		slog.String("username", i.Username),
		slog.String("password", password),
		slog.Bool("tls_skip_verify", i.TLSSkipVerify),
		slog.Duration("connect_timeout", i.ConnectTimeout),
		slog.Duration("socket_timeout", i.SocketTimeout),
	)
}

// QueueGroup aggregates the queues whose names match Pattern.
type QueueGroup struct {
	Name string
	// Expr is the source expression of Pattern.
	Expr                string
	Pattern             matcher.Matcher
	ShowIndividualStats bool
}

func (g *QueueGroup) Match(queue string) bool {
	return g.Pattern != nil && g.Pattern.MatchString(queue)
}

func (g *QueueGroup) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", g.Name),
		slog.String("expr", g.Expr),
		slog.Bool("show_individual_stats", g.ShowIndividualStats),
	)
}
