// SPDX-License-Identifier: GPL-3.0-or-later

package confload

import (
	"errors"
	"testing"
	"time"

	"github.com/netdata/rabbitmq-monitor/pkg/passcrypt"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/instance"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/queuegroup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fixturePlaintext = "fixture-password"
	fixtureKey       = "fixture-key"
)

func servers(s ...ServerConfig) *[]ServerConfig { return &s }

func TestLoader_Build_Defaults(t *testing.T) {
	reg, err := NewLoader(passcrypt.Codec{}).Build(&Config{Servers: servers(ServerConfig{DisplayName: "A"})})
	require.NoError(t, err)
	require.Equal(t, 1, reg.Len())

	want := instance.Instance{
		DisplayName:    "A",
		Host:           "localhost",
		Username:       "guest",
		Password:       "",
		Port:           15672,
		UseSSL:         false,
		ConnectTimeout: 10000 * time.Millisecond,
		SocketTimeout:  10000 * time.Millisecond,
	}
	assert.Equal(t, want, *reg.Instances()[0])
	assert.Empty(t, reg.QueueGroups())
	assert.Nil(t, reg.Exclude())
}

func TestLoader_Build_ExplicitValues(t *testing.T) {
	cfg, err := Load("testdata/config.yaml")
	require.NoError(t, err)

	reg, err := NewLoader(passcrypt.Codec{}).Build(cfg)
	require.NoError(t, err)

	insts := reg.Instances()
	require.Len(t, insts, 2)
	assert.Equal(t, "local", insts[0].DisplayName)
	assert.Equal(t, instance.Instance{
		DisplayName:    "prod-1",
		Host:           "rmq1.example.com",
		Username:       "monitor",
		Password:       "secret",
		Port:           15671,
		UseSSL:         true,
		ConnectTimeout: 2 * time.Second,
		SocketTimeout:  5 * time.Second,
	}, *insts[1])

	groups := reg.QueueGroups()
	require.Len(t, groups, 2)
	assert.Equal(t, "orders", groups[0].Name)
	assert.True(t, groups[0].ShowIndividualStats)
	assert.Equal(t, "celery", groups[1].Name)
	assert.False(t, groups[1].ShowIndividualStats)

	assert.True(t, reg.Excluded("amq.gen-xyz"))
	assert.False(t, reg.Excluded("orders.eu"))
}

func TestLoader_Build_Errors(t *testing.T) {
	tests := map[string]struct {
		cfg         *Config
		wantErr     error
		wantErrPath string
	}{
		"nil config": {
			cfg:         nil,
			wantErr:     instance.ErrNoInstances,
			wantErrPath: "servers",
		},
		"servers absent": {
			cfg:         &Config{},
			wantErr:     instance.ErrNoInstances,
			wantErrPath: "servers",
		},
		"servers empty": {
			cfg:         &Config{Servers: servers()},
			wantErr:     instance.ErrNoInstances,
			wantErrPath: "servers",
		},
		"first entry missing displayName": {
			cfg:         &Config{Servers: servers(ServerConfig{Host: "h1"}, ServerConfig{DisplayName: "B"})},
			wantErr:     instance.ErrMissingDisplayName,
			wantErrPath: "servers[0].displayName",
		},
		"last entry missing displayName": {
			cfg:         &Config{Servers: servers(ServerConfig{DisplayName: "A"}, ServerConfig{DisplayName: "B"}, ServerConfig{Host: "h3"})},
			wantErr:     instance.ErrMissingDisplayName,
			wantErrPath: "servers[2].displayName",
		},
		"blank displayName": {
			cfg:         &Config{Servers: servers(ServerConfig{DisplayName: "   "})},
			wantErr:     instance.ErrMissingDisplayName,
			wantErrPath: "servers[0].displayName",
		},
		"duplicate displayName": {
			cfg:         &Config{Servers: servers(ServerConfig{DisplayName: "A"}, ServerConfig{DisplayName: "A", Host: "other"})},
			wantErr:     instance.ErrDuplicateDisplayName,
			wantErrPath: "servers[1].displayName",
		},
		"encrypted password without key": {
			cfg:         &Config{Servers: servers(ServerConfig{DisplayName: "A", EncryptedPassword: "c2VjcmV0"})},
			wantErr:     instance.ErrMissingEncryptionKey,
			wantErrPath: "servers[0] 'A'.encryptedPassword",
		},
		"encrypted password with wrong key": {
			cfg:         &Config{Servers: servers(ServerConfig{DisplayName: "A", EncryptedPassword: mustEncrypt(t), EncryptionKey: "wrong"})},
			wantErr:     passcrypt.ErrDecryptionFailure,
			wantErrPath: "servers[0] 'A'.encryptedPassword",
		},
		"port out of range": {
			cfg:         &Config{Servers: servers(ServerConfig{DisplayName: "A", Port: 70000})},
			wantErr:     errInvalidPort,
			wantErrPath: "servers[0] 'A'.port",
		},
		"negative port": {
			cfg:         &Config{Servers: servers(ServerConfig{DisplayName: "A", Port: -1})},
			wantErr:     errInvalidPort,
			wantErrPath: "servers[0] 'A'.port",
		},
		"negative connect timeout": {
			cfg:         &Config{Servers: servers(ServerConfig{DisplayName: "A", ConnectTimeout: -5})},
			wantErr:     errNegativeTimeout,
			wantErrPath: "servers[0] 'A'.connectTimeout",
		},
		"negative socket timeout": {
			cfg:         &Config{Servers: servers(ServerConfig{DisplayName: "A", SocketTimeout: -5})},
			wantErr:     errNegativeTimeout,
			wantErrPath: "servers[0] 'A'.socketTimeout",
		},
		"relative proxy url": {
			cfg:         &Config{Servers: servers(ServerConfig{DisplayName: "A", ProxyURL: "proxy:3128"})},
			wantErr:     errInvalidProxyURL,
			wantErrPath: "servers[0] 'A'.proxyUrl",
		},
		"unparsable proxy url": {
			cfg:         &Config{Servers: servers(ServerConfig{DisplayName: "A", ProxyURL: "://bad"})},
			wantErr:     errInvalidProxyURL,
			wantErrPath: "servers[0] 'A'.proxyUrl",
		},
		"invalid queue group pattern": {
			cfg: &Config{
				Servers:     servers(ServerConfig{DisplayName: "A"}),
				QueueGroups: []queuegroup.GroupConfig{{GroupName: "broken", QueueNameRegex: "[a-"}},
			},
			wantErrPath: "queueGroups[0] 'broken'",
		},
		"invalid exclusion pattern": {
			cfg: &Config{
				Servers:           servers(ServerConfig{DisplayName: "A"}),
				ExcludeQueueRegex: "(",
			},
			wantErrPath: "excludeQueueRegex",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			reg, err := NewLoader(passcrypt.Codec{}).Build(test.cfg)

			assert.Nil(t, reg)
			var cfgErr *instance.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, test.wantErrPath, cfgErr.Path)
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
			}
		})
	}
}

func TestLoader_Build_HTTPOptions(t *testing.T) {
	headers := map[string]string{"Host": "rabbit.internal"}
	cfg := &Config{Servers: servers(ServerConfig{
		DisplayName:   "A",
		UseSSL:        true,
		TLSSkipVerify: true,
		ProxyURL:      "http://proxy:3128",
		Headers:       headers,
	})}

	reg, err := NewLoader(nil).Build(cfg)
	require.NoError(t, err)

	inst := reg.Instances()[0]
	assert.True(t, inst.TLSSkipVerify)
	assert.Equal(t, "http://proxy:3128", inst.ProxyURL)
	assert.Equal(t, headers, inst.Headers)

	headers["Host"] = "changed"
	assert.Equal(t, "rabbit.internal", inst.Headers["Host"])
}

func TestLoader_Build_Credentials(t *testing.T) {
	cipher := mustEncrypt(t)

	tests := map[string]struct {
		srv          ServerConfig
		wantPassword string
	}{
		"plaintext only": {
			srv:          ServerConfig{DisplayName: "A", Password: "plain"},
			wantPassword: "plain",
		},
		"plaintext wins over encrypted": {
			srv:          ServerConfig{DisplayName: "A", Password: "plain", EncryptedPassword: cipher, EncryptionKey: fixtureKey},
			wantPassword: "plain",
		},
		"plaintext wins even without key": {
			srv:          ServerConfig{DisplayName: "A", Password: "plain", EncryptedPassword: cipher},
			wantPassword: "plain",
		},
		"encrypted with key": {
			srv:          ServerConfig{DisplayName: "A", EncryptedPassword: cipher, EncryptionKey: fixtureKey},
			wantPassword: fixturePlaintext,
		},
		"no credential": {
			srv:          ServerConfig{DisplayName: "A"},
			wantPassword: "",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			reg, err := NewLoader(passcrypt.Codec{}).Build(&Config{Servers: servers(test.srv)})
			require.NoError(t, err)

			assert.Equal(t, test.wantPassword, reg.Instances()[0].Password)
		})
	}
}

func TestLoader_Build_SameCipherWithAndWithoutKey(t *testing.T) {
	cipher := mustEncrypt(t)
	l := NewLoader(passcrypt.Codec{})

	_, err := l.Build(&Config{Servers: servers(ServerConfig{DisplayName: "A", EncryptedPassword: cipher})})
	assert.ErrorIs(t, err, instance.ErrMissingEncryptionKey)

	reg, err := l.Build(&Config{Servers: servers(ServerConfig{DisplayName: "A", EncryptedPassword: cipher, EncryptionKey: fixtureKey})})
	require.NoError(t, err)
	assert.Equal(t, fixturePlaintext, reg.Instances()[0].Password)
}

func TestLoader_Build_PreservesOrder(t *testing.T) {
	names := []string{"n3", "n1", "n2", "n5", "n4"}
	var srvs []ServerConfig
	for _, name := range names {
		srvs = append(srvs, ServerConfig{DisplayName: name})
	}

	reg, err := NewLoader(nil).Build(&Config{Servers: &srvs})
	require.NoError(t, err)

	var got []string
	for _, inst := range reg.Instances() {
		got = append(got, inst.DisplayName)
	}
	assert.Equal(t, names, got)
}

func TestLoader_Build_RegistriesAreIndependent(t *testing.T) {
	l := NewLoader(passcrypt.Codec{})

	cfg1 := &Config{
		Servers:     servers(ServerConfig{DisplayName: "A", Host: "a.example.com"}, ServerConfig{DisplayName: "B"}),
		QueueGroups: []queuegroup.GroupConfig{{GroupName: "g1", QueueNameRegex: "one.*"}},
	}
	cfg2 := &Config{
		Servers:           servers(ServerConfig{DisplayName: "C", Host: "c.example.com"}),
		QueueGroups:       []queuegroup.GroupConfig{{GroupName: "g2", QueueNameRegex: "two.*"}},
		ExcludeQueueRegex: "amq.*",
	}

	reg1, err := l.Build(cfg1)
	require.NoError(t, err)
	reg2, err := l.Build(cfg2)
	require.NoError(t, err)

	require.Equal(t, 2, reg1.Len())
	assert.Equal(t, "A", reg1.Instances()[0].DisplayName)
	assert.Equal(t, "a.example.com", reg1.Instances()[0].Host)
	assert.Equal(t, "g1", reg1.QueueGroups()[0].Name)
	assert.Nil(t, reg1.Exclude())
	assert.False(t, reg1.Excluded("amq.gen"))

	// mutating the source document and the returned views of reg1 leaves both registries intact
	(*cfg1.Servers)[0].Host = "changed"
	insts := reg1.Instances()
	insts[0] = &instance.Instance{DisplayName: "replaced"}
	groups := reg1.QueueGroups()
	groups[0].Name = "replaced"

	assert.Equal(t, "A", reg1.Instances()[0].DisplayName)
	assert.Equal(t, "a.example.com", reg1.Instances()[0].Host)
	assert.Equal(t, "g1", reg1.QueueGroups()[0].Name)

	require.Equal(t, 1, reg2.Len())
	assert.Equal(t, "C", reg2.Instances()[0].DisplayName)
	assert.Equal(t, "g2", reg2.QueueGroups()[0].Name)
	assert.True(t, reg2.Excluded("amq.gen"))
}

func TestLoader_Build_DecrypterNotNeeded(t *testing.T) {
	reg, err := NewLoader(nil).Build(&Config{Servers: servers(ServerConfig{DisplayName: "A", Password: "p"})})
	require.NoError(t, err)
	assert.Equal(t, "p", reg.Instances()[0].Password)

	_, err = NewLoader(nil).Build(&Config{Servers: servers(ServerConfig{DisplayName: "A", EncryptedPassword: "x", EncryptionKey: "k"})})
	var cfgErr *instance.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func mustEncrypt(t *testing.T) string {
	t.Helper()
	v, err := passcrypt.Encrypt(fixturePlaintext, fixtureKey)
	require.NoError(t, err)
	return v
}

func TestLoader_Build_StockConfig(t *testing.T) {
	cfg, err := Load("../../config/rabbitmq.d.conf")
	require.NoError(t, err)

	reg, err := NewLoader(passcrypt.Codec{}).Build(cfg)
	require.NoError(t, err)

	require.Equal(t, 1, reg.Len())
	assert.Equal(t, "local", reg.Instances()[0].DisplayName)
	assert.Equal(t, "http://localhost:15672", reg.Instances()[0].URL())
	assert.Empty(t, reg.QueueGroups())
	assert.Nil(t, reg.Exclude())
}
