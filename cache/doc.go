// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package cache implements the on-disk download cache used by httpq.

Every absolute URL maps to a key, the hex SHA-256 digest of the URL,
and every key owns one entry directory under the cache root:

	<root>/<key>/bookmark      JSON record of a completed download
	<root>/<key>/resume-data   state saved by a canceled transfer
	<root>/<key>/partial       body bytes of the transfer in progress
	<root>/<key>/data/<name>   completed body stored in the cache

A bookmark names the file holding the completed body, which is either
inside the entry directory or at a caller-chosen path elsewhere. The
resume data is opaque to the store; it is written when a transfer is
canceled and consumed by the next attempt. Finalize commits a finished
transfer and leaves the bookmark as the only cache artifact.

The store works on an afero.Fs so that tests and embedders can run it on
an in-memory filesystem.
*/
package cache
