// SPDX-License-Identifier: GPL-3.0-or-later

package confload

import (
	"errors"
	"fmt"
	"os"

	"github.com/netdata/rabbitmq-monitor/pkg/confopt"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/instance"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/queuegroup"

	"github.com/goccy/go-yaml"
)

// Config is the typed form of the monitor configuration document.
type Config struct {
	// Servers is nil when the section is absent (or null) and non-nil but empty for "servers: []".
	Servers           *[]ServerConfig          `yaml:"servers" json:"servers" jsonschema:"title=Servers,description=Ordered list of monitored broker nodes."`
	QueueGroups       []queuegroup.GroupConfig `yaml:"queueGroups,omitempty" json:"queueGroups,omitempty" jsonschema:"title=Queue groups,description=Ordered queue aggregation rules."`
	ExcludeQueueRegex string                   `yaml:"excludeQueueRegex,omitempty" json:"excludeQueueRegex,omitempty" jsonschema:"title=Exclude queue regex,description=Queues whose whole name matches are not reported individually on any server."`
}

type ServerConfig struct {
	DisplayName       string           `yaml:"displayName" json:"displayName" jsonschema:"title=Display name,description=Unique node name used as task name and metric path segment."`
	Host              string           `yaml:"host,omitempty" json:"host,omitempty" jsonschema:"default=localhost"`
	Username          string           `yaml:"username,omitempty" json:"username,omitempty" jsonschema:"default=guest"`
	Password          string           `yaml:"password,omitempty" json:"password,omitempty" jsonschema:"description=Plaintext password. Takes precedence over encryptedPassword."`
	EncryptedPassword string           `yaml:"encryptedPassword,omitempty" json:"encryptedPassword,omitempty"`
	EncryptionKey     string           `yaml:"encryptionKey,omitempty" json:"encryptionKey,omitempty" jsonschema:"description=Required when encryptedPassword is set."`
	Port              int              `yaml:"port,omitempty" json:"port,omitempty" jsonschema:"default=15672,minimum=0,maximum=65535"`
	UseSSL            confopt.FlexBool `yaml:"useSSL,omitempty" json:"useSSL,omitempty" jsonschema:"title=Use SSL,description=Talk to the management API over https."`
	TLSSkipVerify     confopt.FlexBool `yaml:"tlsSkipVerify,omitempty" json:"tlsSkipVerify,omitempty" jsonschema:"title=Skip TLS verification,description=Accept any server certificate."`
	ProxyURL          string           `yaml:"proxyUrl,omitempty" json:"proxyUrl,omitempty" jsonschema:"description=HTTP proxy for the management API. Empty means the environment proxy settings."`
	// Headers are sent with every management API request; a Host entry overrides the request host.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	// ConnectTimeout and SocketTimeout are milliseconds.
	ConnectTimeout int `yaml:"connectTimeout,omitempty" json:"connectTimeout,omitempty" jsonschema:"default=10000,minimum=0"`
	SocketTimeout  int `yaml:"socketTimeout,omitempty" json:"socketTimeout,omitempty" jsonschema:"default=10000,minimum=0"`
}

func (c *Config) String() string {
	n := -1
	if c.Servers != nil {
		n = len(*c.Servers)
	}
	return fmt.Sprintf("servers '%d', queue_groups '%d', exclude '%s'", n, len(c.QueueGroups), c.ExcludeQueueRegex)
}

// Parse decodes the configuration document. Decoding failures are *instance.ConfigError.
func Parse(bs []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(bs, &cfg); err != nil {
		return nil, &instance.ConfigError{Err: err}
	}
	return &cfg, nil
}

func Load(path string) (*Config, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, &instance.ConfigError{Path: path, Err: err}
	}
	cfg, err := Parse(bs)
	if err != nil {
		var cfgErr *instance.ConfigError
		if errors.As(err, &cfgErr) {
			cfgErr.Path = path
		}
		return nil, err
	}
	return cfg, nil
}
