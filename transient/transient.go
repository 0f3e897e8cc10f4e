// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// A Category is the transience category of an error, as reported by
// Categorize.
//
// Not means that repeating the same request is unlikely to succeed, or
// that the request was deliberately stopped. Every other category
// means a later attempt has some prospect of success.
type Category int

const (
	// Not indicates any non-transient error, and the nil error.
	Not Category = iota
	// Timeout indicates a client-side timeout: the error or one of its
	// wrapped causes has a Timeout method reporting true.
	Timeout
	// ConnRefused indicates the remote host refused the connection
	// (syscall.ECONNREFUSED). A service which is restarting does this
	// briefly, so it is treated as transient.
	ConnRefused
	// ConnReset indicates the remote host reset an established
	// connection (syscall.ECONNRESET).
	ConnReset
	// DNS indicates a temporary name resolution failure. Permanent
	// failures, such as a name which does not exist, are Not.
	DNS
	// Canceled indicates the request was stopped by its caller. It is
	// reported separately so that callers can suppress alerts, and it
	// is not considered transient by IsTransient.
	Canceled
)

var categoryNames = []string{
	"Not",
	"Timeout",
	"ConnRefused",
	"ConnReset",
	"DNS",
	"Canceled",
}

// String returns the name of the category.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "Category(?)"
	}
	return categoryNames[c]
}

// Categorize returns the transience category of err, looking through
// wrapped causes. Timeouts take precedence over every other category,
// and cancellation is checked last.
func Categorize(err error) Category {
	if err == nil {
		return Not
	}

	var t hasTimeout
	if errors.As(err, &t) && t.Timeout() {
		return Timeout
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNRESET:
			return ConnReset
		case syscall.ECONNREFUSED:
			return ConnRefused
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsTemporary {
		return DNS
	}

	if errors.Is(err, context.Canceled) {
		return Canceled
	}

	var c hasCanceled
	if errors.As(err, &c) && c.Canceled() {
		return Canceled
	}

	return Not
}

// IsTransient reports whether err falls in a category other than Not
// and Canceled.
func IsTransient(err error) bool {
	c := Categorize(err)
	return c != Not && c != Canceled
}

type hasTimeout interface {
	Timeout() bool
}

type hasCanceled interface {
	Canceled() bool
}
