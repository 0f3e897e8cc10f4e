// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"io/fs"

	"github.com/gogama/httpq/cache"
	"github.com/gogama/httpq/request"
	"github.com/spf13/cobra"
)

func newCacheCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or remove download cache entries",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show URL...",
		Short: "Show the cached file for each URL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := g.load(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			out := cmd.OutOrStdout()
			for _, u := range args {
				key, err := cacheKey(u)
				if err != nil {
					return err
				}
				bm, err := client.Cache().Bookmark(key)
				switch {
				case errors.Is(err, fs.ErrNotExist):
					printInfo(out, "%s: not cached", u)
				case err != nil:
					printError(out, "%s: %v", u, err)
				default:
					printSuccess(out, "%s", u)
					printDetail(out, "key:  %s", key)
					printDetail(out, "path: %s", bm.Path)
					printDetail(out, "size: %d", bm.Size)
					printDetail(out, "time: %s", bm.ModTime.Local().Format("2006-01-02 15:04:05"))
				}
			}
			return nil
		},
	}, &cobra.Command{
		Use:   "rm URL...",
		Short: "Remove the cache entry for each URL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := g.load(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			for _, u := range args {
				key, err := cacheKey(u)
				if err != nil {
					return err
				}
				if err = client.Cache().Remove(key); err != nil {
					return err
				}
				printSuccess(cmd.OutOrStdout(), "removed %s", u)
			}
			return nil
		},
	})
	return cmd
}

// cacheKey derives the cache key the same way a download of rawURL
// would.
func cacheKey(rawURL string) (string, error) {
	d, err := request.NewDescriptor(rawURL)
	if err != nil {
		return "", err
	}
	if err = d.Validate(); err != nil {
		return "", err
	}
	return cache.Key(d.CacheURL()), nil
}
