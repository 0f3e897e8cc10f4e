// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"net/url"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newGetCmd(g *globalFlags) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "get URL...",
		Short: "Download URLs, each in its own queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs := make([]*job, 0, len(args))
			for i, u := range args {
				item := batchItem{URL: u}
				if outDir != "" {
					item.Output = filepath.Join(outDir, outputName(u))
				}
				j, err := newJob(i, u, []batchItem{item})
				if err != nil {
					return err
				}
				jobs = append(jobs, j)
			}

			client, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			return g.runner(client, logger, cmd.OutOrStdout()).run(cmd.Context(), jobs)
		},
	}
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "directory to save files in (default: the cache)")
	return cmd
}

// outputName picks a file name for rawURL from the last path segment.
func outputName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "download"
	}
	return name
}
