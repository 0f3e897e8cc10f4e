// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvents(t *testing.T) {
	assert.Len(t, eventNames, numEvents)
	events := Events()
	assert.Len(t, events, numEvents)
	for i, evt := range events {
		assert.Equal(t, Event(i), evt)
		assert.Equal(t, eventNames[i], evt.String())
	}
	assert.Equal(t, "BeforeTask", BeforeTask.Name())
	assert.Equal(t, "AuthChallenge", AuthChallenge.Name())
	assert.Equal(t, "AfterTask", AfterTask.Name())
}
