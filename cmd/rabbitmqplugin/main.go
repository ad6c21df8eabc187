// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/net/http/httpproxy"

	"github.com/netdata/rabbitmq-monitor/logger"
	"github.com/netdata/rabbitmq-monitor/pkg/buildinfo"
	"github.com/netdata/rabbitmq-monitor/pkg/executable"
	"github.com/netdata/rabbitmq-monitor/pkg/passcrypt"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/confload"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/agent/instance"
	"github.com/netdata/rabbitmq-monitor/plugin/rabbitmq.d/cli"
)

func main() {
	_, _ = maxprocs.Set(maxprocs.Logger(func(s string, args ...interface{}) {}))

	opts := parseCLI()

	switch {
	case opts.Version:
		fmt.Printf("%s.plugin, version: %s\n", executable.Name, buildinfo.Version)
		return
	case opts.DumpSchema:
		os.Exit(dumpSchema())
	case opts.Encrypt != "":
		os.Exit(encrypt(opts.Encrypt, opts.EncryptionKey))
	}

	if lvl := os.Getenv("NETDATA_LOG_LEVEL"); lvl != "" {
		if !logger.Level.SetByName(lvl) {
			logger.New().Warningf("unknown NETDATA_LOG_LEVEL '%s', keeping the default level", lvl)
		}
	}
	if opts.Debug {
		logger.Level.Set(slog.LevelDebug)
	}

	a := agent.New(agent.Config{
		Name:        executable.Name,
		ConfigPath:  expandPath(configPath(opts.Config)),
		MetricsFile: expandPath(opts.MetricsFile),
		LockDir:     expandPath(opts.LockDir),
		Workers:     opts.Workers,
		UpdateEvery: time.Duration(opts.UpdateEvery) * time.Second,
		Decrypter:   passcrypt.Codec{},
	})

	a.Infof("plugin: name=%s, version=%s", a.Name, buildinfo.Version)
	if u, err := user.Current(); err == nil {
		a.Debugf("current user: name=%s, uid=%s", u.Username, u.Uid)
	}

	proxyCfg := httpproxy.FromEnvironment()
	a.Infof("env HTTP_PROXY '%s', HTTPS_PROXY '%s'", proxyCfg.HTTPProxy, proxyCfg.HTTPSProxy)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.Once {
		os.Exit(runOnce(ctx, a))
	}

	a.Run(ctx)
}

func parseCLI() *cli.Option {
	opt, err := cli.Parse(os.Args)
	if err != nil {
		if cli.IsHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	return opt
}

func runOnce(ctx context.Context, a *agent.Agent) int {
	res, err := a.RunCycle(ctx)
	if err != nil {
		var cfgErr *instance.ConfigError
		var preErr *instance.PreconditionError
		switch {
		case errors.As(err, &cfgErr):
			a.Errorf("configuration error, no task was dispatched: %v", err)
		case errors.As(err, &preErr):
			a.Errorf("precondition failed, no task was dispatched: %v", err)
		default:
			a.Error(err)
		}
		return 1
	}

	if err := res.Summary.Err(); err != nil {
		a.Warningf("cycle '%s' finished with failed instances: %v", res.ID, err)
	}
	return 0
}

func configPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if dir := os.Getenv("NETDATA_USER_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, executable.Name+".conf")
	}
	return filepath.Join(executable.Directory, executable.Name+".conf")
}

// expandPath resolves a leading "~" in paths given on the command line by service managers that do not expand it.
func expandPath(path string) string {
	p, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return p
}

func dumpSchema() int {
	bs, err := confload.Schema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate schema: %v\n", err)
		return 1
	}
	fmt.Println(string(bs))
	return 0
}

func encrypt(password, key string) int {
	if key == "" {
		fmt.Fprintln(os.Stderr, "--encrypt requires --encryption-key")
		return 1
	}
	v, err := passcrypt.Encrypt(password, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encrypt: %v\n", err)
		return 1
	}
	fmt.Println(v)
	return 0
}
