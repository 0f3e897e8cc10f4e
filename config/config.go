// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net/http"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gogama/httpq"
	"github.com/gogama/httpq/cache"
	"github.com/gogama/httpq/internal/transport"
	"github.com/gogama/httpq/timeout"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding keys.
const EnvPrefix = "HTTPQ"

// Duration is a time.Duration which decodes from a duration string or
// a number of seconds.
type Duration time.Duration

// DurationValue returns d as a time.Duration.
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// Config holds every setting of an httpq client.
type Config struct {
	ConcurrencyLimit int               `mapstructure:"concurrency_limit" validate:"gte=1,lte=1024"`
	CacheRoot        string            `mapstructure:"cache_root"`
	DefaultTimeout   Duration          `mapstructure:"default_timeout" validate:"gte=0"`
	DownloadTimeout  Duration          `mapstructure:"download_timeout" validate:"gte=0"`
	UserAgent        string            `mapstructure:"user_agent"`
	DefaultHeaders   map[string]string `mapstructure:"default_headers" validate:"dive,keys,required,endkeys"`
	MaxRedirects     int               `mapstructure:"max_redirects" validate:"gte=0,lte=100"`
	ProxyURL         string            `mapstructure:"proxy_url" validate:"omitempty,url"`
	ForceHTTP2       bool              `mapstructure:"force_http2"`
	RateLimit        RateLimit         `mapstructure:"rate_limit"`
	Log              Log               `mapstructure:"log"`
}

// RateLimit throttles outgoing requests across the whole client.
type RateLimit struct {
	RPS   float64 `mapstructure:"rps" validate:"gte=0"`
	Burst int     `mapstructure:"burst" validate:"gte=0"`
}

// Log configures the client's logger.
type Log struct {
	Level      string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

// Load reads the configuration file at path, applies environment
// overrides and defaults, and validates the result. An empty path
// loads the defaults and environment alone.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("httpq/config: read %s: %w", path, err)
		}
	}

	var cfg Config
	hook := mapstructure.ComposeDecodeHookFunc(durationDecodeHook(), mapstructure.StringToSliceHookFunc(","))
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("httpq/config: decode: %w", err)
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	if cfg.CacheRoot != "" {
		abs, err := filepath.Abs(cfg.CacheRoot)
		if err != nil {
			return nil, fmt.Errorf("httpq/config: cache root: %w", err)
		}
		cfg.CacheRoot = abs
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("concurrency_limit", 4)
	v.SetDefault("cache_root", "")
	v.SetDefault("default_timeout", "60s")
	v.SetDefault("download_timeout", "60s")
	v.SetDefault("user_agent", "httpq")
	v.SetDefault("max_redirects", transport.DefaultMaxRedirects)
	v.SetDefault("proxy_url", "")
	v.SetDefault("force_http2", false)
	v.SetDefault("rate_limit.rps", 0)
	v.SetDefault("rate_limit.burst", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_path", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.compress", true)
}

// Options returns the client options described by c. The logger, if
// not nil, is given to the client and to its transports.
func (c *Config) Options(logger logrus.FieldLogger) ([]httpq.Option, error) {
	f, err := transport.New(transport.Options{
		ProxyURL:   c.ProxyURL,
		ForceHTTP2: c.ForceHTTP2,
		RPS:        c.RateLimit.RPS,
		Burst:      c.RateLimit.Burst,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("httpq/config: transport: %w", err)
	}

	opts := []httpq.Option{
		httpq.WithTransportFactory(f.RoundTripper),
		httpq.WithMaxRedirects(c.MaxRedirects),
		httpq.WithTimeoutPolicy(timeout.Downloads(c.DefaultTimeout.DurationValue(), c.DownloadTimeout.DurationValue())),
	}
	if logger != nil {
		opts = append(opts, httpq.WithLogger(logger))
	}
	if c.CacheRoot != "" {
		opts = append(opts, httpq.WithCache(cache.New(afero.NewOsFs(), c.CacheRoot)))
	}
	if c.UserAgent != "" {
		opts = append(opts, httpq.WithUserAgent(c.UserAgent))
	}
	for name, value := range c.DefaultHeaders {
		opts = append(opts, httpq.WithDefaultHeader(http.CanonicalHeaderKey(name), value))
	}
	return opts, nil
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			v = strings.TrimSpace(v)
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("invalid duration %q", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("unsupported duration type %T", v)
		}
	}
}
