// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package httpq schedules queues of HTTP requests with bounded
concurrency, and downloads response bodies into a resumable on-disk
cache.

Create a Client with a concurrency limit, build a Queue of descriptors,
and submit it.

	client := httpq.NewClient(4)
	defer client.Close()

	q := httpq.NewQueue()
	q.Append("https://example.com/manifest.json", func(d *request.Descriptor) {
		d.Decoder = decode.NoErr.And(decode.JSON(&manifest))
	})
	q.Append("https://example.com/archive.tar.gz", func(d *request.Descriptor) {
		d.Download = request.ToCache().WithSize(1 << 20)
	})
	q.OnComplete(func(err error) {
		...
	})
	err := client.Submit(q)

Descriptors in a queue run one at a time, in order, over the queue's own
session. A descriptor's decoder decides whether the queue continues;
a rejected task ends the queue in Failure, and resubmitting it starts
over from the first descriptor. At most the concurrency limit of queues
run at once, and the rest wait in FIFO order.

Download descriptors stream the body to a partial file in the client's
cache (see package cache). A download that is canceled or interrupted
saves resume data, and the next attempt asks the server for the rest of
the body with a Range request. A completed download is bookmarked, so a
later descriptor for the same URL completes from the cache.

Failed queues are not retried automatically. Use a RetryHandle, with a
policy from package retry if desired:

	h := httpq.NewRetryHandle(client, q)
	q.OnComplete(func(err error) {
		go h.RetryIf(ctx, retry.DefaultPolicy, err)
	})

To observe task execution in detail, install handlers into a
HandlerGroup and pass it to the client with WithHandlers. Handlers run
in the client's serial context and must not block.

For one-off requests, the functions Get, Head, Post, PostForm, Download
and Do run a single-descriptor queue through any Submitter and wait for
it to finish.
*/
package httpq
