// SPDX-License-Identifier: GPL-3.0-or-later

package confload

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"strings"
	"time"

	"github.com/netdata/rabbitmq-monitor/logger"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/credential"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/instance"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/queuegroup"
)

var (
	errInvalidPort     = errors.New("must be in range 1..65535")
	errNegativeTimeout = errors.New("must not be negative")
	errInvalidProxyURL = errors.New("must be an absolute URL")
)

func NewLoader(d credential.Decrypter) *Loader {
	return &Loader{
		Logger:   logger.New().With(slog.String("component", "config loader")),
		resolver: credential.NewResolver(d),
	}
}

// Loader builds registries. It holds no state between Build calls.
type Loader struct {
	*logger.Logger

	resolver *credential.Resolver
}

// Build validates cfg and resolves it into a new registry.
// Any violation fails the whole build with an *instance.ConfigError and no registry.
func (l *Loader) Build(cfg *Config) (*instance.Registry, error) {
	if cfg == nil || cfg.Servers == nil || len(*cfg.Servers) == 0 {
		return nil, &instance.ConfigError{Path: "servers", Err: instance.ErrNoInstances}
	}

	servers := *cfg.Servers
	instances := make([]instance.Instance, 0, len(servers))
	seen := make(map[string]int, len(servers))

	for i, srv := range servers {
		inst, err := l.buildInstance(i, srv)
		if err != nil {
			return nil, err
		}
		if j, ok := seen[inst.DisplayName]; ok {
			return nil, &instance.ConfigError{
				Path: fmt.Sprintf("servers[%d].displayName", i),
				Err:  fmt.Errorf("%w '%s' (already used by servers[%d])", instance.ErrDuplicateDisplayName, inst.DisplayName, j),
			}
		}
		seen[inst.DisplayName] = i
		instances = append(instances, inst)
	}

	groups, err := queuegroup.Compile(cfg.QueueGroups)
	if err != nil {
		return nil, err
	}

	exclude, err := queuegroup.CompileExclude(cfg.ExcludeQueueRegex)
	if err != nil {
		return nil, err
	}

	reg := instance.NewRegistry(instances, exclude, groups)

	l.Debugf("built registry: %d instance(s), %d queue group(s), exclusion pattern set: %v",
		reg.Len(), len(groups), exclude != nil)

	return reg, nil
}

func (l *Loader) buildInstance(idx int, srv ServerConfig) (instance.Instance, error) {
	path := fmt.Sprintf("servers[%d]", idx)

	name := strings.TrimSpace(srv.DisplayName)
	if name == "" {
		return instance.Instance{}, &instance.ConfigError{Path: path + ".displayName", Err: instance.ErrMissingDisplayName}
	}
	path = fmt.Sprintf("servers[%d] '%s'", idx, name)

	if srv.Port < 0 || srv.Port > 65535 {
		return instance.Instance{}, &instance.ConfigError{Path: path + ".port", Err: fmt.Errorf("%w, got %d", errInvalidPort, srv.Port)}
	}
	if srv.ConnectTimeout < 0 {
		return instance.Instance{}, &instance.ConfigError{Path: path + ".connectTimeout", Err: errNegativeTimeout}
	}
	if srv.SocketTimeout < 0 {
		return instance.Instance{}, &instance.ConfigError{Path: path + ".socketTimeout", Err: errNegativeTimeout}
	}

	if srv.ProxyURL != "" {
		if u, err := url.Parse(srv.ProxyURL); err != nil || u.Scheme == "" || u.Host == "" {
			return instance.Instance{}, &instance.ConfigError{Path: path + ".proxyUrl", Err: errInvalidProxyURL}
		}
	}

	password, err := l.resolver.Resolve(srv.Password, srv.EncryptedPassword, srv.EncryptionKey)
	if err != nil {
		var cfgErr *instance.ConfigError
		if errors.As(err, &cfgErr) {
			err = cfgErr.Err
		}
		return instance.Instance{}, &instance.ConfigError{Path: path + ".encryptedPassword", Err: err}
	}

	inst := instance.Instance{
		DisplayName:    name,
		Host:           withDefault(strings.TrimSpace(srv.Host), instance.DefaultHost),
		Username:       withDefault(srv.Username, instance.DefaultUsername),
		Password:       password,
		Port:           withDefault(srv.Port, instance.DefaultPort),
		UseSSL:         srv.UseSSL.Bool(),
		TLSSkipVerify:  srv.TLSSkipVerify.Bool(),
		ProxyURL:       srv.ProxyURL,
		Headers:        maps.Clone(srv.Headers),
		ConnectTimeout: withDefault(millis(srv.ConnectTimeout), instance.DefaultConnectTimeout),
		SocketTimeout:  withDefault(millis(srv.SocketTimeout), instance.DefaultSocketTimeout),
	}

	if srv.Password != "" && srv.EncryptedPassword != "" {
		l.Debugf("%s: both password and encryptedPassword are set, using password", path)
	}

	return inst, nil
}

func withDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

func millis(v int) time.Duration { return time.Duration(v) * time.Millisecond }
