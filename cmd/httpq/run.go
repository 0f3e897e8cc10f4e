// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gogama/httpq"
	"github.com/gogama/httpq/retry"
	"github.com/sirupsen/logrus"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

const barTotal = 1000

// A job is one queue of downloads and the paths its descriptors
// produced.
type job struct {
	index int
	name  string
	queue *httpq.Queue
	paths []string
}

type outcome struct {
	job *job
	err error
}

type runner struct {
	client *httpq.Client
	logger logrus.FieldLogger
	policy retry.Policy
	out    io.Writer
	bars   bool
}

func (g *globalFlags) runner(c *httpq.Client, logger logrus.FieldLogger, out io.Writer) *runner {
	policy := retry.Never
	if g.retries > 0 {
		policy = retry.NewPolicy(
			retry.Times(g.retries).And(retry.TransientErr.Or(retry.StatusCode(408, 429, 500, 502, 503, 504))),
			retry.NewExpWaiter(500*time.Millisecond, 10*time.Second, time.Now()),
		)
	}
	return &runner{client: c, logger: logger, policy: policy, out: out, bars: !g.quiet}
}

// run submits every job, retries failed queues as the policy allows,
// and prints a summary once all of them have finished. Canceling ctx
// closes the client.
func (r *runner) run(ctx context.Context, jobs []*job) error {
	var p *mpb.Progress
	if r.bars {
		p = mpb.New(mpb.WithOutput(r.out), mpb.WithWidth(64), mpb.WithRefreshRate(100*time.Millisecond))
	}
	results := make(chan outcome, len(jobs))
	for _, j := range jobs {
		r.schedule(ctx, p, j, results)
	}

	outcomes := make([]outcome, len(jobs))
	done := ctx.Done()
	for n := 0; n < len(jobs); {
		select {
		case o := <-results:
			outcomes[o.job.index] = o
			n++
		case <-done:
			r.logger.Warn("interrupted, canceling queues")
			_ = r.client.Close()
			done = nil
		}
	}
	if p != nil {
		p.Wait()
	}

	var failed int
	for _, o := range outcomes {
		if o.err != nil {
			failed++
			printError(r.out, "%s: %v", o.job.name, o.err)
			continue
		}
		printSuccess(r.out, "%s", o.job.name)
		for _, path := range o.job.paths {
			printDetail(r.out, "%s", path)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d queues failed", failed, len(jobs))
	}
	return nil
}

func (r *runner) schedule(ctx context.Context, p *mpb.Progress, j *job, results chan<- outcome) {
	var bar *mpb.Bar
	if p != nil {
		bar = newBar(p, j.name)
		j.queue.OnProgress(func(_, _ int, fraction float64) {
			bar.SetCurrent(int64(fraction * barTotal))
		})
	}
	h := httpq.NewRetryHandle(r.client, j.queue)
	j.queue.OnComplete(func(err error) {
		if err != nil && !errors.Is(err, httpq.ErrCanceled) && r.policy.Decide(j.queue.RetryCount(), err) {
			r.logger.WithFields(logrus.Fields{
				"queue":   j.queue.ID(),
				"attempt": j.queue.RetryCount() + 1,
			}).WithError(err).Warn("retrying queue")
			go func() {
				if rerr := h.RetryAfter(ctx, r.policy); rerr != nil {
					r.finish(bar, j, err, results)
				}
			}()
			return
		}
		r.finish(bar, j, err, results)
	})
	if err := r.client.Submit(j.queue); err != nil {
		r.finish(bar, j, err, results)
	}
}

func (r *runner) finish(bar *mpb.Bar, j *job, err error, results chan<- outcome) {
	if bar != nil {
		if err == nil {
			bar.SetCurrent(barTotal)
		} else {
			bar.Abort(false)
		}
	}
	results <- outcome{job: j, err: err}
}

func newBar(p *mpb.Progress, name string) *mpb.Bar {
	return p.New(barTotal,
		mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟"),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
			decor.OnAbort(
				decor.OnComplete(decor.Percentage(decor.WC{W: 5}), "done"),
				"failed",
			),
		),
		mpb.AppendDecorators(decor.Elapsed(decor.ET_STYLE_GO)),
	)
}
