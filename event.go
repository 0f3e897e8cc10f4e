// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpq

// An Event identifies the event type when installing or running a
// Handler. Install event handlers in a Client with WithHandlers to
// observe or extend the execution of descriptors.
//
// Every event is fired inside the client's serial context, so handlers
// see a consistent Execution and must return quickly. Handlers must not
// call blocking Client or Queue methods such as Stats or Queue.Cancel.
type Event int

const (
	// BeforeTask occurs after the HTTP request for a descriptor has
	// been built and before the task starts. Handlers may replace or
	// modify the execution's Request, cloning reference fields first.
	// A download may still be satisfied from the cache, in which case
	// the request is never sent.
	BeforeTask Event = iota
	// Redirect occurs each time the transport follows a redirect. The
	// execution's Redirects counter has been incremented.
	Redirect
	// ResponseReceived occurs when response headers arrive, before the
	// body is read. The execution's Response, BytesExpected and
	// ResumeOffset are set.
	ResponseReceived
	// AuthChallenge occurs after ResponseReceived when the response is
	// a 401 carrying a WWW-Authenticate header.
	AuthChallenge
	// BytesReceived occurs as the body streams in. Events are
	// coalesced, so BytesReceived reports the running total and not
	// each read.
	BytesReceived
	// CacheHit occurs when a download completes from the cache. The
	// execution's Path and FromCache are set.
	CacheHit
	// DownloadFinished occurs when a transferred download has been
	// committed to the cache. The execution's Path is set.
	DownloadFinished
	// AfterTask occurs when the task ends for any reason, before the
	// descriptor's decoder runs. End and Err are set.
	AfterTask
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel

	// numEvents provides the total number of events types as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"BeforeTask",
	"Redirect",
	"ResponseReceived",
	"AuthChallenge",
	"BytesReceived",
	"CacheHit",
	"DownloadFinished",
	"AfterTask",
}

// Events returns all events, in the order in which they can occur.
func Events() []Event {
	return []Event{
		BeforeTask,
		Redirect,
		ResponseReceived,
		AuthChallenge,
		BytesReceived,
		CacheHit,
		DownloadFinished,
		AfterTask,
	}
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}
