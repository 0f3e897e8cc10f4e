// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

type statusErr int

func (err statusErr) Error() string    { return fmt.Sprintf("status %d", int(err)) }
func (err statusErr) HTTPStatus() int { return int(err) }

func TestDefaultDecider(t *testing.T) {
	t.Run("Retryable status codes", func(t *testing.T) {
		for _, code := range []int{429, 502, 503, 504} {
			err := fmt.Errorf("wrapped: %w", statusErr(code))
			t.Run(fmt.Sprintf("%d", code), func(t *testing.T) {
				for j := 0; j < DefaultTimes; j++ {
					assert.True(t, DefaultDecider(j, err), "attempt %d", j)
				}
				assert.False(t, DefaultDecider(DefaultTimes, err))
			})
		}
	})
	t.Run("Non-retryable status codes", func(t *testing.T) {
		for _, code := range []int{400, 401, 403, 404, 500} {
			assert.False(t, DefaultDecider(0, statusErr(code)), "code %d", code)
		}
	})
	t.Run("Transient errors", func(t *testing.T) {
		assert.True(t, DefaultDecider(0, &url.Error{Op: "Get", URL: "http://x", Err: syscall.ECONNRESET}))
		assert.True(t, DefaultDecider(0, syscall.ECONNREFUSED))
		assert.False(t, DefaultDecider(0, context.Canceled))
		assert.False(t, DefaultDecider(0, errors.New("permanent")))
		assert.False(t, DefaultDecider(0, nil))
	})
}

func TestTimes(t *testing.T) {
	assert.False(t, Times(0)(0, nil))
	assert.False(t, Times(-1)(0, nil))
	assert.True(t, Times(2)(1, nil))
	assert.False(t, Times(2)(2, nil))
}

func TestDeciderFunc(t *testing.T) {
	var calls []string
	named := func(name string, result bool) DeciderFunc {
		return func(_ int, _ error) bool {
			calls = append(calls, name)
			return result
		}
	}

	calls = nil
	assert.False(t, named("f", false).And(named("g", true)).Decide(0, nil))
	assert.Equal(t, []string{"f"}, calls)

	calls = nil
	assert.True(t, named("f", false).Or(named("g", true)).Decide(0, nil))
	assert.Equal(t, []string{"f", "g"}, calls)

	calls = nil
	assert.True(t, named("f", true).Or(named("g", false)).Decide(0, nil))
	assert.Equal(t, []string{"f"}, calls)
}

func TestStatusCode(t *testing.T) {
	ss := []int{418}
	d := StatusCode(ss...)
	ss[0] = 200
	assert.True(t, d(0, statusErr(418)))
	assert.False(t, d(0, statusErr(200)))
	assert.False(t, d(0, errors.New("no status")))
}
