// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"strconv"

	"github.com/jessevdk/go-flags"

	"github.com/netdata/rabbitmq-monitor/pkg/executable"
)

// Option defines command line options.
type Option struct {
	UpdateEvery   int
	Config        string `short:"c" long:"config" description:"monitor configuration file"`
	MetricsFile   string `short:"m" long:"metrics-file" description:"metric definitions file required before any task is dispatched"`
	LockDir       string `short:"l" long:"lock-dir" description:"directory for cross-process instance locks"`
	Workers       int    `short:"w" long:"workers" description:"max concurrently running tasks, 0 means one per server" default:"0"`
	Once          bool   `long:"once" description:"run a single cycle and exit"`
	DumpSchema    bool   `long:"dump-schema" description:"print the configuration JSON schema and exit"`
	Encrypt       string `long:"encrypt" description:"print the encrypted form of the given password and exit"`
	EncryptionKey string `short:"k" long:"encryption-key" description:"encryption key used with --encrypt"`
	Debug         bool   `short:"d" long:"debug" description:"debug mode"`
	Version       bool   `short:"v" long:"version" description:"display the version and exit"`
}

// Parse returns parsed command-line flags in Option struct
func Parse(args []string) (*Option, error) {
	opt := &Option{
		UpdateEvery: 60,
	}
	parser := flags.NewParser(opt, flags.Default)
	parser.Name = executable.Name
	parser.Usage = "[OPTIONS] [update every]"

	rest, err := parser.ParseArgs(args)
	if err != nil {
		return nil, err
	}

	if len(rest) > 1 {
		if opt.UpdateEvery, err = strconv.Atoi(rest[1]); err != nil {
			return nil, err
		}
	}

	return opt, nil
}

func IsHelp(err error) bool {
	return flags.WroteHelp(err)
}
