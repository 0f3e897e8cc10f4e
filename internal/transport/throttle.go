// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrThrottled is wrapped by errors from requests which ended while
// waiting for the rate limiter.
var ErrThrottled = errors.New("httpq/transport: rate limiter wait failed")

// throttle is an http.RoundTripper which delays requests using a token
// bucket shared with other throttles.
type throttle struct {
	limiter *rate.Limiter
	next    *http.Transport
	logger  logrus.FieldLogger
}

func (t *throttle) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	if t.logger != nil && t.limiter.Tokens() < 1 {
		start := time.Now()
		defer func() {
			t.logger.WithFields(logrus.Fields{
				"host":   r.URL.Host,
				"waited": time.Since(start).String(),
			}).Debug("throttled request")
		}()
	}
	if err := t.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrThrottled, err)
	}
	return t.next.RoundTrip(r)
}

func (t *throttle) CloseIdleConnections() {
	t.next.CloseIdleConnections()
}
