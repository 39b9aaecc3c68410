/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package cli implements the comicsnet command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"comicsnet/internal/backend"
	"comicsnet/internal/config"
	"comicsnet/internal/credits"
	applog "comicsnet/internal/log"
	"comicsnet/internal/storage"
	"comicsnet/internal/version"
)

// app carries state shared by all commands of one invocation.
type app struct {
	cfgPath string
	cfg     config.AppConfig
	log     *slog.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "comicsnet",
		Short: "Character labels from comic cover credits",
		Long: `comicsnet reads scraped comic issue metadata, parses the cover
character credits into individual characters, indexes them for search and
exports labelled cover datasets.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "", "config file (default is <user config dir>/comicsnet/config.yaml)")

	root.AddCommand(
		newParseCmd(a),
		newScrapeCmd(a),
		newIngestCmd(a),
		newSearchCmd(a),
		newCountsCmd(a),
		newExportCmd(a),
		newRelabelCmd(a),
		newDatasetCmd(a),
		newUnpackCmd(),
		newExcludeCmd(),
		newPasswordCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var err error
	if a.cfgPath != "" {
		a.cfg, err = config.LoadFrom(a.cfgPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	opts := a.cfg.Logging.LogOptions()
	opts.Console = cmd.ErrOrStderr()
	applog.Init(opts)
	a.log = applog.WithComponent("cli")
	a.log.Debug("start", slog.String("cmd", cmd.CommandPath()))
	return nil
}

func (a *app) parser() (*credits.Parser, error) {
	tbl, err := a.cfg.Parser.Table()
	if err != nil {
		return nil, fmt.Errorf("load patterns: %w", err)
	}
	return credits.New(credits.WithTable(tbl), credits.WithLogger(applog.WithComponent("credits"))), nil
}

// openIndex verifies and opens the SQLite index; path overrides the config.
func (a *app) openIndex(ctx context.Context, path string) (*storage.Index, error) {
	if strings.TrimSpace(path) == "" {
		path = a.cfg.Storage.IndexPath
	}
	recreated, err := storage.CheckIndex(ctx, path)
	if err != nil {
		return nil, err
	}
	if recreated {
		a.log.Warn("index was damaged and has been recreated empty", slog.String("path", path))
	}
	return storage.OpenIndex(path)
}

// openBackend connects to Postgres using the configured DSN and the keyring password.
func (a *app) openBackend(ctx context.Context) (*backend.Sink, error) {
	var pw string
	if u := a.cfg.Backend.User; u != "" {
		p, err := config.BackendPassword(u)
		if err != nil {
			a.log.Warn("keyring unavailable", slog.Any("err", err))
		}
		pw = p
	}
	if strings.TrimSpace(a.cfg.Backend.DSN) == "" {
		return nil, backend.ErrNoDSN
	}
	dsn, err := a.cfg.Backend.ConnString(pw)
	if err != nil {
		return nil, err
	}
	if ms := a.cfg.Backend.TimeoutMs; ms > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
		defer cancel()
	}
	return backend.Open(ctx, dsn)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		// Skip config loading so version works with a broken config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
