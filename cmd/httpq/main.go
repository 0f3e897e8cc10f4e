// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command httpq downloads files through an httpq client.
//
//	httpq get [-o DIR] URL...
//	httpq batch FILE.yaml
//	httpq cache show|rm URL...
//
// Each URL given to get, and each queue in a batch file, runs as its
// own queue. Interrupted downloads resume from where they stopped the
// next time the same URL is fetched.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
