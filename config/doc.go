// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package config loads httpq client settings from a file and the
// environment, and turns them into client options.
//
// Any format viper understands may be used; the file extension picks
// the format. Every key may be overridden by an environment variable
// named HTTPQ_ followed by the upper-cased key, with dots replaced by
// underscores, for example HTTPQ_LOG_LEVEL. Durations accept Go
// duration strings or plain numbers of seconds.
package config
