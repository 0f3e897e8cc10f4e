// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogama/httpq/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestNew(t *testing.T) {
	t.Run("bad level", func(t *testing.T) {
		_, err := New(config.Log{Level: "loud"})
		assert.Error(t, err)
	})
	t.Run("stderr", func(t *testing.T) {
		logger, err := New(config.Log{Level: "debug"})
		require.NoError(t, err)
		assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
		assert.Same(t, os.Stderr, logger.Out)
		assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
	})
	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "httpq.log")
		logger, err := New(config.Log{Level: "info", FilePath: path, MaxSize: 1, MaxBackups: 2})
		require.NoError(t, err)
		rotator, ok := logger.Out.(*lumberjack.Logger)
		require.True(t, ok)
		defer rotator.Close()
		assert.Equal(t, 1, rotator.MaxSize)
		assert.Equal(t, 2, rotator.MaxBackups)

		logger.WithField("queue", "q1").Info("queue finished")
		b, err := os.ReadFile(path)
		require.NoError(t, err)
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(b, &entry))
		assert.Equal(t, "queue finished", entry["msg"])
		assert.Equal(t, "q1", entry["queue"])
		assert.Equal(t, "info", entry["level"])
	})
	t.Run("fallback", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0o644))
		logger, err := New(config.Log{Level: "info", FilePath: filepath.Join(blocker, "sub", "httpq.log")})
		require.NoError(t, err)
		assert.Same(t, os.Stderr, logger.Out)
	})
}
