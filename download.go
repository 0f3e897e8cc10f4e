// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpq

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gogama/httpq/cache"
	"github.com/gogama/httpq/request"
	"github.com/sirupsen/logrus"
)

// maxErrorBody bounds how much of a non-2XX download response is kept
// for the decoder.
const maxErrorBody = 64 * 1024

// resumeState is the resume data saved for an interrupted download.
type resumeState struct {
	URL          string `json:"url"`
	Offset       int64  `json:"offset"`
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	Total        int64  `json:"total"`
}

// validator returns the If-Range value for the resumed request. Weak
// entity tags cannot be used with If-Range.
func (rs *resumeState) validator() string {
	if rs.ETag != "" && !strings.HasPrefix(rs.ETag, "W/") {
		return rs.ETag
	}
	return rs.LastModified
}

func (t *task) download(r *http.Request) *taskResult {
	res := &taskResult{total: -1}
	store := t.sess.c.store
	d := t.d
	url := d.CacheURL()
	key := cache.Key(url)
	target := d.Download.Path()
	if target == "" {
		target = store.DefaultTarget(key, url)
	} else if abs, err := filepath.Abs(target); err == nil {
		target = abs
	}
	size := d.Download.Size()
	log := t.sess.c.logger.WithFields(logrus.Fields{
		"queue": t.q.id,
		"url":   url,
		"key":   key,
	})

	var cached bool
	var rs *resumeState
	if d.CachePolicy == request.CacheReload {
		store.ResumeData(key)
	} else {
		l, err := store.Lookup(key, size)
		if err != nil {
			log.WithError(err).Warn("ignoring unreadable cache entry")
		}
		switch {
		case l.Result == cache.Hit && size >= 0:
			log.WithField("action", "hit").Debug("download satisfied from cache")
			res.fromCache, res.path, res.total = true, l.Path, l.Size
			return res
		case l.Result == cache.Hit:
			cached = true
		default:
			rs = t.loadResume(store, key, url)
		}
	}
	if rs != nil {
		r.Header.Set("Range", fmt.Sprintf("bytes=%d-", rs.Offset))
		if v := rs.validator(); v != "" {
			r.Header.Set("If-Range", v)
		}
		log.WithField("offset", rs.Offset).Debug("resuming download")
	}

	defer t.watch()()
	resp, err := t.sess.client.Do(r)
	if err != nil {
		res.err = t.transportError(r, err)
		t.keepResume(store, key, rs)
		return res
	}
	defer resp.Body.Close()
	t.touch()
	res.resp = resp

	var offset int64
	switch {
	case resp.StatusCode == http.StatusPartialContent && rs != nil:
		start, total, ok := parseContentRange(resp.Header.Get("Content-Range"))
		if !ok || start != rs.Offset {
			_ = store.RemovePartial(key)
			t.postResponse(resp, -1, 0)
			res.err = t.transportError(r, fmt.Errorf("unexpected Content-Range %q", resp.Header.Get("Content-Range")))
			return res
		}
		offset = start
		res.total = total
		if total < 0 && resp.ContentLength >= 0 {
			res.total = offset + resp.ContentLength
		}
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable && rs != nil:
		_ = store.RemovePartial(key)
		t.postResponse(resp, -1, 0)
		res.err = statusError(resp)
		return res
	case !is2XX(resp.StatusCode):
		t.keepResume(store, key, rs)
		t.postResponse(resp, resp.ContentLength, 0)
		res.body, _ = io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		res.err = statusError(resp)
		return res
	default:
		res.total = resp.ContentLength
	}
	t.postResponse(resp, res.total, offset)

	if cached && resp.StatusCode == http.StatusOK {
		if resp.ContentLength >= 0 {
			l, _ := store.Lookup(key, resp.ContentLength)
			if l.Result == cache.Hit {
				log.WithField("action", "hit").Debug("download satisfied from cache")
				res.fromCache, res.path, res.total = true, l.Path, l.Size
				return res
			}
		}
		log.WithField("action", "stale").Debug("cache entry is stale")
	}

	f, err := store.OpenPartial(key, offset)
	if err != nil {
		res.err = err
		return res
	}
	n, err, local := t.copy(f, resp.Body)
	res.written = n
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err, local = closeErr, true
	}
	if err == nil && res.total >= 0 && offset+n != res.total {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		if local {
			res.err = &cache.Error{Op: "write partial", Key: key, Err: err}
		} else {
			res.err = t.transportError(r, err)
		}
		t.saveResume(store, key, url, resp, offset+n, res.total, log)
		return res
	}

	bm, err := store.Finalize(key, store.PartialPath(key), target, url)
	if err != nil {
		res.err = err
		return res
	}
	res.path = bm.Path
	log.WithFields(logrus.Fields{"action": "finalize", "path": bm.Path, "size": bm.Size}).Debug("download committed")
	return res
}

func (t *task) loadResume(store *cache.Store, key, url string) *resumeState {
	data, ok := store.ResumeData(key)
	if !ok {
		return nil
	}
	var rs resumeState
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil
	}
	if rs.URL != url || rs.Offset <= 0 || (rs.Total > 0 && rs.Offset >= rs.Total) {
		return nil
	}
	if store.PartialSize(key) < rs.Offset {
		return nil
	}
	return &rs
}

// keepResume puts back resume data consumed by an attempt which ended
// before transferring anything.
func (t *task) keepResume(store *cache.Store, key string, rs *resumeState) {
	if rs == nil {
		return
	}
	if b, err := json.Marshal(rs); err == nil {
		_ = store.SaveResumeData(key, b)
	}
}

// saveResume records how far an interrupted transfer got. Nothing is
// saved if no bytes were written or the server refuses range requests.
func (t *task) saveResume(store *cache.Store, key, url string, resp *http.Response, offset, total int64, log logrus.FieldLogger) {
	if offset <= 0 || strings.EqualFold(resp.Header.Get("Accept-Ranges"), "none") {
		return
	}
	rs := resumeState{
		URL:          url,
		Offset:       offset,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		Total:        total,
	}
	b, err := json.Marshal(rs)
	if err == nil {
		err = store.SaveResumeData(key, b)
	}
	if err != nil {
		log.WithError(err).Warn("failed to save resume data")
		return
	}
	log.WithFields(logrus.Fields{"action": "save-resume", "offset": offset}).Debug("saved resume data")
}

// parseContentRange parses "bytes start-end/total". Total is -1 when
// the server reports it as "*".
func parseContentRange(v string) (start, total int64, ok bool) {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "bytes ") {
		return 0, 0, false
	}
	v = strings.TrimSpace(v[len("bytes "):])
	rng, size, found := strings.Cut(v, "/")
	if !found {
		return 0, 0, false
	}
	first, _, found := strings.Cut(rng, "-")
	if !found {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 {
		return 0, 0, false
	}
	if size == "*" {
		return start, -1, true
	}
	total, err = strconv.ParseInt(size, 10, 64)
	if err != nil || total <= start {
		return 0, 0, false
	}
	return start, total, true
}
