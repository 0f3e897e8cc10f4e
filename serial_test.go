// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpq

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSerial(t *testing.T) {
	t.Run("order", func(t *testing.T) {
		s := newSerial()
		defer s.close()
		var got []int
		for i := 0; i < 100; i++ {
			i := i
			assert.True(t, s.post(func() { got = append(got, i) }))
		}
		assert.True(t, s.sync(func() {}))
		assert.Len(t, got, 100)
		for i, v := range got {
			assert.Equal(t, i, v)
		}
	})
	t.Run("post from inside", func(t *testing.T) {
		s := newSerial()
		defer s.close()
		var got []string
		s.sync(func() {
			s.post(func() { got = append(got, "inner") })
			got = append(got, "outer")
		})
		s.sync(func() {})
		assert.Equal(t, []string{"outer", "inner"}, got)
	})
	t.Run("concurrent posters", func(t *testing.T) {
		s := newSerial()
		defer s.close()
		var n int
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					s.post(func() { n++ })
				}
			}()
		}
		wg.Wait()
		s.sync(func() {})
		assert.Equal(t, 1000, n)
	})
	t.Run("close", func(t *testing.T) {
		s := newSerial()
		var ran bool
		s.post(func() { ran = true })
		s.close()
		<-s.done
		assert.True(t, ran)
		assert.False(t, s.post(func() {}))
		assert.False(t, s.sync(func() {}))
	})
}
