// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"math"
	"testing"
	"time"

	"github.com/gogama/httpq/request"
	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	assert.Equal(t, 60*time.Second, DefaultPolicy.Timeout(&request.Descriptor{}))
	assert.Equal(t, time.Second, DefaultPolicy.Timeout(&request.Descriptor{Timeout: time.Second}))
	assert.Equal(t, 60*time.Second, DefaultPolicy.Timeout(nil))
}

func TestInfinite(t *testing.T) {
	assert.Equal(t, time.Duration(math.MaxInt64), Infinite.Timeout(&request.Descriptor{}))
	assert.Equal(t, 3*time.Second, Infinite.Timeout(&request.Descriptor{Timeout: 3 * time.Second}))
}

func TestFixed(t *testing.T) {
	p := Fixed(33 * time.Hour)
	assert.Equal(t, 33*time.Hour, p.Timeout(&request.Descriptor{}))
	assert.Equal(t, 33*time.Hour, p.Timeout(&request.Descriptor{Timeout: -1}))
	assert.Equal(t, time.Millisecond, p.Timeout(&request.Descriptor{Timeout: time.Millisecond}))
}

func TestDownloads(t *testing.T) {
	p := Downloads(time.Second, time.Minute)
	assert.Equal(t, time.Second, p.Timeout(&request.Descriptor{}))
	assert.Equal(t, time.Minute, p.Timeout(&request.Descriptor{Download: request.ToCache()}))
	assert.Equal(t, time.Hour, p.Timeout(&request.Descriptor{Download: request.ToPath("x"), Timeout: time.Hour}))
	assert.Equal(t, time.Second, p.Timeout(nil))
}
