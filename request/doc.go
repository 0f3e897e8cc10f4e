// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the core types Descriptor (describes one HTTP
call in a queue) and Execution (describes the task running a
Descriptor).

A Descriptor is built once, inside the configure function handed to a
queue's Append method:

	err := q.Append("https://example.com/api/items", func(d *request.Descriptor) {
		d.Method = "POST"
		d.Body = request.JSONBody(item)
		d.Decoder = decode.Status2XX.And(decode.JSON(&created))
	})

Download descriptors stream the response body to disk and participate
in the resumable download cache:

	err := q.Append("https://example.com/big.iso", func(d *request.Descriptor) {
		d.Download = request.ToPath("/data/big.iso")
	})

Bodies and query strings are produced by BodyEncoder and QueryEncoder
values rather than stored, so the same descriptor can be turned into a
fresh http.Request every time its queue runs.

An Execution is created by the client each time a queue reaches a
descriptor. It is the input to event handlers and to the descriptor's
ResponseDecoder, which decides whether the queue moves on.
*/
package request
