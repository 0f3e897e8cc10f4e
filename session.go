// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpq

import (
	"net/http"

	"github.com/gogama/httpq/internal/transport"
	"github.com/sirupsen/logrus"
)

// A session is the transport context of one admitted queue. It lives
// from admission until the queue finishes or is canceled.
type session struct {
	c      *Client
	q      *Queue
	rt     http.RoundTripper
	client *http.Client
}

type taskKey struct{}

func (c *Client) openSession(q *Queue) (*session, error) {
	rt, err := c.newTransport()
	if err != nil {
		return nil, err
	}
	s := &session{c: c, q: q, rt: rt}
	policy := transport.RedirectPolicy(c.maxRedirects)
	s.client = &http.Client{
		Transport: rt,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if err := policy(req, via); err != nil {
				return err
			}
			if t, ok := req.Context().Value(taskKey{}).(*task); ok {
				c.exec.post(func() { q.onRedirect(t, req.URL.String()) })
			}
			return nil
		},
	}
	c.logger.WithFields(logrus.Fields{
		"queue":  q.id,
		"action": "admit",
	}).Debug("session opened")
	return s, nil
}

// finalize stops any task the session still owns and releases the
// transport's idle connections.
func (s *session) finalize() {
	if t := s.q.active; t != nil && t.sess == s {
		s.q.interrupt()
	}
	if ic, ok := s.rt.(interface{ CloseIdleConnections() }); ok {
		ic.CloseIdleConnections()
	}
}
