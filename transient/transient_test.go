// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	assert.Equal(t, Not, Categorize(nil))
	assert.Equal(t, Not, Categorize(errors.New("foo")))
	assert.Equal(t, Not, Categorize(wrapper{}))
	assert.Equal(t, Not, Categorize(wrapper{errors.New("bar")}))

	assert.Equal(t, Timeout, Categorize(syscall.ETIMEDOUT))
	assert.Equal(t, Timeout, Categorize(timeout{}))
	assert.Equal(t, Timeout, Categorize(context.DeadlineExceeded))
	assert.Equal(t, Timeout, Categorize(&url.Error{Err: syscall.ETIMEDOUT}))
	assert.Equal(t, Timeout, Categorize(wrapper{wrapper{timeout{}}}))
	assert.Equal(t, Timeout, Categorize(timeoutWrapper{true, syscall.ECONNRESET}))
	assert.Equal(t, Timeout, Categorize(timeoutWrapper{true, context.Canceled}))

	assert.Equal(t, ConnReset, Categorize(syscall.ECONNRESET))
	assert.Equal(t, ConnReset, Categorize(timeoutWrapper{false, syscall.ECONNRESET}))
	assert.Equal(t, ConnRefused, Categorize(&url.Error{Err: wrapper{syscall.ECONNREFUSED}}))

	assert.Equal(t, DNS, Categorize(&url.Error{Err: &net.DNSError{Err: "try again", IsTemporary: true}}))
	assert.Equal(t, Not, Categorize(&net.DNSError{Err: "no such host", IsNotFound: true}))

	assert.Equal(t, Canceled, Categorize(context.Canceled))
	assert.Equal(t, Canceled, Categorize(&url.Error{Err: context.Canceled}))
	assert.Equal(t, Canceled, Categorize(canceled{}))
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("permanent")))
	assert.False(t, IsTransient(context.Canceled))
	assert.True(t, IsTransient(syscall.ECONNRESET))
	assert.True(t, IsTransient(&url.Error{Err: timeout{}}))
}

func TestCategory_String(t *testing.T) {
	assert.Equal(t, "Timeout", Timeout.String())
	assert.Equal(t, "Canceled", Canceled.String())
	assert.Equal(t, "Category(?)", Category(99).String())
}

type timeout struct{}

func (err timeout) Error() string { return "timeout" }

func (_ timeout) Timeout() bool { return true }

type canceled struct{}

func (err canceled) Error() string { return "canceled" }

func (_ canceled) Canceled() bool { return true }

type wrapper struct {
	wrappedError error
}

func (err wrapper) Error() string {
	return fmt.Sprintf("wrapper - wraps %v", err.wrappedError)
}

func (err wrapper) Unwrap() error {
	return err.wrappedError
}

type timeoutWrapper struct {
	timeout      bool
	wrappedError error
}

func (err timeoutWrapper) Error() string {
	return fmt.Sprintf("timeoutWrapper - timeout %t, wraps %v", err.timeout, err.wrappedError)
}

func (err timeoutWrapper) Timeout() bool {
	return err.timeout
}

func (err timeoutWrapper) Unwrap() error {
	return err.wrappedError
}
