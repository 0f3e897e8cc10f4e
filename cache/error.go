// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package cache

import "errors"

// ErrInvalidKey is returned for keys that cannot name an entry
// directory.
var ErrInvalidKey = errors.New("httpq/cache: invalid key")

// An Error records a failed cache operation and the key it failed for.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return "httpq/cache: " + e.Op + " " + e.Key + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
