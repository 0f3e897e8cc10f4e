// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout defines policies for choosing the timeout of each
// descriptor's task. A descriptor's own Timeout always wins; the policy
// supplies the client-wide fallback for descriptors which leave it zero.
package timeout
