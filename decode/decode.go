// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package decode provides composable response decoders for descriptors.
//
// A decoder looks at a finished task and returns true if the queue
// should continue with its next descriptor, or false to end the queue
// in failure. Use the built-in decoders NoErr, Status2XX and Accept, the
// constructors StatusCode, JSON and Bytes, or write your own; compose
// them with DecoderFunc.And and DecoderFunc.Or.
package decode

import (
	"encoding/json"

	"github.com/gogama/httpq/request"
)

// The DecoderFunc type is an adapter to allow the use of ordinary
// functions as response decoders. It implements request.ResponseDecoder
// and provides the logical composition methods And and Or.
type DecoderFunc func(e *request.Execution) bool

// Decode returns f(e).
func (f DecoderFunc) Decode(e *request.Execution) bool {
	return f(e)
}

// And composes two decoders into a decoder which returns true only if
// both do. g is not evaluated if f returns false, so a side-effecting
// decoder such as JSON should come last.
func (f DecoderFunc) And(g DecoderFunc) DecoderFunc {
	return func(e *request.Execution) bool {
		return f(e) && g(e)
	}
}

// Or composes two decoders into a decoder which returns true if either
// does. g is not evaluated if f returns true.
func (f DecoderFunc) Or(g DecoderFunc) DecoderFunc {
	return func(e *request.Execution) bool {
		return f(e) || g(e)
	}
}

// Default is the decoder used when a descriptor sets none. It is NoErr.
var Default DecoderFunc = NoErr

// NoErr accepts any task which ended without an error. Non-2XX
// responses carry a status error, so NoErr rejects them.
var NoErr DecoderFunc = noErr

// Accept accepts every task, including failed ones. Use it for
// best-effort descriptors whose failure must not stop the queue.
var Accept DecoderFunc = func(_ *request.Execution) bool { return true }

// Status2XX accepts any task which received a response with a 2XX
// status code.
var Status2XX DecoderFunc = func(e *request.Execution) bool {
	s := e.StatusCode()
	return s >= 200 && s < 300
}

// StatusCode constructs a decoder which accepts a response whose
// status code is in ss, tolerating the status error that non-2XX codes
// would otherwise cause. Transport errors are never accepted.
func StatusCode(ss ...int) DecoderFunc {
	ss2 := make([]int, len(ss))
	copy(ss2, ss)
	return func(e *request.Execution) bool {
		if e.Response == nil {
			return false
		}
		for _, s := range ss2 {
			if e.StatusCode() == s {
				return true
			}
		}
		return false
	}
}

// JSON constructs a decoder which unmarshals the buffered body into v.
// It rejects the task if there is no buffered body or it is not valid
// JSON for v. Compose it after NoErr or Status2XX.
func JSON(v interface{}) DecoderFunc {
	return func(e *request.Execution) bool {
		if e.Body == nil {
			return false
		}
		return json.Unmarshal(e.Body, v) == nil
	}
}

// Bytes constructs a decoder which copies the buffered body into *b
// and always accepts.
func Bytes(b *[]byte) DecoderFunc {
	return func(e *request.Execution) bool {
		*b = append((*b)[:0], e.Body...)
		return true
	}
}

// Path constructs a decoder which stores the local file path of a
// download into *p. It rejects tasks which produced no file.
func Path(p *string) DecoderFunc {
	return func(e *request.Execution) bool {
		if e.Path == "" {
			return false
		}
		*p = e.Path
		return true
	}
}

func noErr(e *request.Execution) bool {
	return e.Err == nil
}
