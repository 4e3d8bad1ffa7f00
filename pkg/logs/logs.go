//
// Copyright (c) 2021 Red Hat, Inc.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/hashicorp/go-hclog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	DebugLevel = 1
	TraceLevel = 2
)

var errInvalidLoggingOption = errors.New("invalid logging option")

var (
	rootLock sync.RWMutex
	root     = logr.Discard()
)

// Options mirror the logging command line arguments.
type Options struct {
	Development     bool
	Encoder         string
	LogLevel        string
	StackTraceLevel string
	TimeEncoding    string
}

// InitDevelLoggers Configure zap backend development logger
func InitDevelLoggers() {
	if err := InitLoggers(Options{Development: true, TimeEncoding: "iso8601"}); err != nil {
		panic(err)
	}
}

// InitLoggers configures the zap backend and makes it the root logger of the process. The same zap core is
// used by zap.L(), by the root logr.Logger and by the default hclog.Logger used by the Vault client.
func InitLoggers(opts Options) error {
	logger, err := NewZapLogger(opts)
	if err != nil {
		return err
	}

	_ = zap.ReplaceGlobals(logger)
	lg := zapr.NewLogger(logger)
	SetLogger(lg)
	hclog.SetDefault(NewHCLogAdapter(lg.WithName("vault")))
	return nil
}

// NewZapLogger constructs the zap logger according to the options. Development mode defaults to the console
// encoder, debug level and stack traces from warnings, production mode to the json encoder, info level and stack
// traces from errors.
func NewZapLogger(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	stackTraceLevel := zapcore.ErrorLevel
	if opts.Development {
		stackTraceLevel = zapcore.WarnLevel
	}

	if opts.Encoder != "" {
		if opts.Encoder != "json" && opts.Encoder != "console" {
			return nil, fmt.Errorf("%w: encoder '%s'", errInvalidLoggingOption, opts.Encoder)
		}
		cfg.Encoding = opts.Encoder
	}

	if opts.LogLevel != "" {
		lvl, err := parseLevel(opts.LogLevel)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	if opts.StackTraceLevel != "" {
		lvl, err := parseLevel(opts.StackTraceLevel)
		if err != nil {
			return nil, err
		}
		stackTraceLevel = lvl
	}

	if opts.TimeEncoding != "" {
		var enc zapcore.TimeEncoder
		if err := enc.UnmarshalText([]byte(opts.TimeEncoding)); err != nil {
			return nil, fmt.Errorf("%w: time encoding '%s'", errInvalidLoggingOption, opts.TimeEncoding)
		}
		cfg.EncoderConfig.EncodeTime = enc
	}

	logger, err := cfg.Build(zap.WithCaller(true), zap.AddStacktrace(stackTraceLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to build the logger: %w", err)
	}
	return logger, nil
}

// parseLevel understands the zap level names as well as positive integers that are interpreted as logr
// verbosity levels.
func parseLevel(level string) (zapcore.Level, error) {
	if v, err := strconv.Atoi(level); err == nil {
		if v < 0 {
			return 0, fmt.Errorf("%w: level '%s'", errInvalidLoggingOption, level)
		}
		return zapcore.Level(-v), nil
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return 0, fmt.Errorf("%w: level '%s'", errInvalidLoggingOption, level)
	}
	return lvl, nil
}

// SetLogger replaces the root logger.
func SetLogger(lg logr.Logger) {
	rootLock.Lock()
	defer rootLock.Unlock()
	root = lg
}

// Logger returns the root logger.
func Logger() logr.Logger {
	rootLock.RLock()
	defer rootLock.RUnlock()
	return root
}

// FromContext returns the logger stored in the context or the root logger, enriched with the provided key-value
// pairs.
func FromContext(ctx context.Context, keysAndValues ...interface{}) logr.Logger {
	lg, err := logr.FromContext(ctx)
	if err != nil {
		lg = Logger()
	}
	if len(keysAndValues) > 0 {
		lg = lg.WithValues(keysAndValues...)
	}
	return lg
}

// IntoContext stores the logger in the context.
func IntoContext(ctx context.Context, lg logr.Logger) context.Context {
	return logr.NewContext(ctx, lg)
}

// TimeTrack used to time any function
// Example:
//
//	{
//	  defer logs.TimeTrack(lg, time.Now(), "resolve persistence unit")
//	}
func TimeTrack(log logr.Logger, start time.Time, name string) {
	elapsed := time.Since(start)
	log.V(DebugLevel).Info(fmt.Sprintf("Time took to %s", name), "time", elapsed)
}

// AuditLog returns logger prepared with audit markers
func AuditLog(ctx context.Context) logr.Logger {
	return FromContext(ctx, "audit", "true")
}
