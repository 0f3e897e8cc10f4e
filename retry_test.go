// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gogama/httpq/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRetryHandle(t *testing.T) {
	m := newMockSubmitter(t)
	q := NewQueue()
	assert.PanicsWithValue(t, "httpq: nil submitter", func() { NewRetryHandle(nil, q) })
	assert.PanicsWithValue(t, "httpq: nil queue", func() { NewRetryHandle(m, nil) })
	assert.Same(t, q, NewRetryHandle(m, q).Queue())
}

func TestRetryHandle(t *testing.T) {
	t.Run("Retry", func(t *testing.T) {
		m := newMockSubmitter(t)
		q := NewQueue()
		m.On("Submit", q).Return(nil).Once()
		h := NewRetryHandle(m, q)
		require.NoError(t, h.Retry())
		assert.Equal(t, 1, q.RetryCount())
		assert.True(t, q.rewind.Load())
		m.AssertExpectations(t)
	})
	t.Run("Retry error", func(t *testing.T) {
		m := newMockSubmitter(t)
		q := NewQueue()
		m.On("Submit", q).Return(ErrClientClosed).Once()
		assert.Equal(t, ErrClientClosed, NewRetryHandle(m, q).Retry())
		m.AssertExpectations(t)
	})
	t.Run("RetryAfter canceled", func(t *testing.T) {
		m := newMockSubmitter(t)
		q := NewQueue()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := NewRetryHandle(m, q).RetryAfter(ctx, retry.NewFixedWaiter(time.Hour))
		assert.Equal(t, context.Canceled, err)
		assert.Equal(t, 0, q.RetryCount())
		m.AssertNotCalled(t, "Submit", q)
	})
	t.Run("RetryAfter waits", func(t *testing.T) {
		m := newMockSubmitter(t)
		q := NewQueue()
		m.On("Submit", q).Return(nil).Once()
		start := time.Now()
		err := NewRetryHandle(m, q).RetryAfter(context.Background(), retry.NewFixedWaiter(20*time.Millisecond))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
		m.AssertExpectations(t)
	})
	t.Run("RetryIf", func(t *testing.T) {
		m := newMockSubmitter(t)
		q := NewQueue()
		m.On("Submit", q).Return(nil).Twice()
		h := NewRetryHandle(m, q)
		p := retry.NewPolicy(retry.Times(2), retry.NewFixedWaiter(0))
		err := errors.New("foo")

		ok, rerr := h.RetryIf(context.Background(), retry.Never, err)
		assert.False(t, ok)
		assert.NoError(t, rerr)
		ok, rerr = h.RetryIf(context.Background(), p, nil)
		assert.False(t, ok)
		assert.NoError(t, rerr)

		for i := 1; i <= 2; i++ {
			ok, rerr = h.RetryIf(context.Background(), p, err)
			assert.True(t, ok)
			assert.NoError(t, rerr)
			assert.Equal(t, i, q.RetryCount())
		}
		ok, _ = h.RetryIf(context.Background(), p, err)
		assert.False(t, ok)
		m.AssertExpectations(t)
	})
}
