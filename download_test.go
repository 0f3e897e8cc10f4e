// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseContentRange(t *testing.T) {
	testCases := []struct {
		value string
		start int64
		total int64
		ok    bool
	}{
		{"bytes 0-99/100", 0, 100, true},
		{"bytes 500-999/1000", 500, 1000, true},
		{" bytes 10-19/* ", 10, -1, true},
		{"bytes 100-199/100", 0, 0, false},
		{"bytes -5/100", 0, 0, false},
		{"bytes 5-9", 0, 0, false},
		{"bytes 5/10", 0, 0, false},
		{"items 0-9/10", 0, 0, false},
		{"bytes x-9/10", 0, 0, false},
		{"bytes 0-9/y", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, testCase := range testCases {
		t.Run(testCase.value, func(t *testing.T) {
			start, total, ok := parseContentRange(testCase.value)
			assert.Equal(t, testCase.ok, ok)
			assert.Equal(t, testCase.start, start)
			assert.Equal(t, testCase.total, total)
		})
	}
}

func TestResumeState_validator(t *testing.T) {
	assert.Equal(t, `"abc"`, (&resumeState{ETag: `"abc"`, LastModified: "Mon"}).validator())
	assert.Equal(t, "Mon", (&resumeState{ETag: `W/"abc"`, LastModified: "Mon"}).validator())
	assert.Equal(t, "Mon", (&resumeState{LastModified: "Mon"}).validator())
	assert.Equal(t, "", (&resumeState{}).validator())
}
