// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/gogama/httpq"
	"github.com/gogama/httpq/config"
	"github.com/gogama/httpq/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "dev"

type globalFlags struct {
	configPath  string
	concurrency int
	cacheRoot   string
	logLevel    string
	retries     int
	quiet       bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "httpq",
		Short:         "Queue-based HTTP downloader with a resumable cache",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "configuration file")
	flags.IntVarP(&g.concurrency, "concurrency", "n", 0, "number of queues to run at once")
	flags.StringVar(&g.cacheRoot, "cache-dir", "", "download cache directory")
	flags.StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.IntVarP(&g.retries, "retries", "r", 2, "times to retry a failed queue")
	flags.BoolVarP(&g.quiet, "quiet", "q", false, "hide progress bars")

	cmd.AddCommand(newGetCmd(g), newBatchCmd(g), newCacheCmd(g))
	return cmd
}

// load reads the configuration, applies flag overrides, and builds the
// logger and client.
func (g *globalFlags) load(cmd *cobra.Command) (*httpq.Client, *logrus.Logger, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("concurrency") {
		cfg.ConcurrencyLimit = g.concurrency
	}
	if flags.Changed("cache-dir") {
		cfg.CacheRoot = g.cacheRoot
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = g.logLevel
	}
	if err = config.Validate(cfg); err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	opts, err := cfg.Options(logger)
	if err != nil {
		return nil, nil, err
	}
	return httpq.NewClient(cfg.ConcurrencyLimit, opts...), logger, nil
}
