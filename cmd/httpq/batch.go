// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gogama/httpq"
	"github.com/gogama/httpq/decode"
	"github.com/gogama/httpq/request"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// batchFile is the YAML input of the batch command. Every queue runs
// its items in order; queues run side by side.
type batchFile struct {
	Queues []batchQueue `yaml:"queues"`
}

type batchQueue struct {
	Name  string      `yaml:"name,omitempty"`
	Items []batchItem `yaml:"items"`
}

type batchItem struct {
	URL     string            `yaml:"url"`
	Output  string            `yaml:"output,omitempty"`
	Size    *int64            `yaml:"size,omitempty"`
	Method  string            `yaml:"method,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout time.Duration     `yaml:"timeout,omitempty"`
	Reload  bool              `yaml:"reload,omitempty"`
}

func newBatchCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "batch FILE",
		Short: "Run the download queues described by a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			queues, err := parseBatch(data)
			if err != nil {
				return err
			}
			jobs := make([]*job, 0, len(queues))
			for i, bq := range queues {
				j, err := newJob(i, bq.Name, bq.Items)
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
			printInfo(cmd.OutOrStdout(), "running %d queues", len(jobs))
			return g.runner(client, logger, cmd.OutOrStdout()).run(cmd.Context(), jobs)
		},
	}
}

func parseBatch(data []byte) ([]batchQueue, error) {
	var f batchFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse batch file: %w", err)
	}
	if len(f.Queues) == 0 {
		return nil, errors.New("batch file has no queues")
	}
	for i, q := range f.Queues {
		if len(q.Items) == 0 {
			return nil, fmt.Errorf("queue %d has no items", i+1)
		}
		for k, it := range q.Items {
			if strings.TrimSpace(it.URL) == "" {
				return nil, fmt.Errorf("queue %d item %d has no url", i+1, k+1)
			}
		}
	}
	return f.Queues, nil
}

// newJob builds a queue with one download descriptor per item. A job
// without a name is named after its queue ID.
func newJob(index int, name string, items []batchItem) (*job, error) {
	q := httpq.NewQueue()
	if name == "" {
		name = q.ID().String()
	}
	j := &job{index: index, name: name, queue: q, paths: make([]string, len(items))}
	for i, it := range items {
		p := &j.paths[i]
		err := q.Append(it.URL, func(d *request.Descriptor) {
			if it.Method != "" {
				d.Method = strings.ToUpper(it.Method)
			}
			for k, v := range it.Headers {
				d.Header.Set(k, v)
			}
			d.Timeout = it.Timeout
			if it.Reload {
				d.CachePolicy = request.CacheReload
			}
			dl := request.ToCache()
			if it.Output != "" {
				dl = request.ToPath(it.Output)
			}
			if it.Size != nil {
				dl = dl.WithSize(*it.Size)
			}
			d.Download = dl
			d.Decoder = decode.NoErr.And(decode.Path(p))
		})
		if err != nil {
			return nil, fmt.Errorf("%s item %d: %w", name, i+1, err)
		}
	}
	return j, nil
}
