// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient classifies errors from HTTP tasks as transient or
// non-transient. The queue uses it to tell timeouts and cancellations
// apart, and callers use it to decide whether to resubmit a failed
// queue.
//
// Package transient depends only on the standard library.
package transient
