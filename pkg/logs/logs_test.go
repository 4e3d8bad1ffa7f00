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
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitDevelLoggers(t *testing.T) {
	defer SetLogger(logr.Discard())

	InitDevelLoggers()

	assert.NotEqual(t, zap.L(), zap.NewNop())
	assert.IsType(t, &HCLogAdapter{}, hclog.Default())
	assert.True(t, Logger().V(DebugLevel).Enabled())
}

func TestNewZapLogger(t *testing.T) {
	t.Run("production defaults", func(t *testing.T) {
		lg, err := NewZapLogger(Options{})
		assert.NoError(t, err)
		assert.False(t, lg.Core().Enabled(zapcore.DebugLevel))
		assert.True(t, lg.Core().Enabled(zapcore.InfoLevel))
	})

	t.Run("numeric level", func(t *testing.T) {
		lg, err := NewZapLogger(Options{LogLevel: "2"})
		assert.NoError(t, err)
		assert.True(t, lg.Core().Enabled(zapcore.Level(-2)))
	})

	t.Run("named level", func(t *testing.T) {
		lg, err := NewZapLogger(Options{LogLevel: "ERROR", Encoder: "console", TimeEncoding: "rfc3339"})
		assert.NoError(t, err)
		assert.False(t, lg.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("invalid options", func(t *testing.T) {
		for _, opts := range []Options{
			{Encoder: "xml"},
			{LogLevel: "chatty"},
			{LogLevel: "-1"},
			{StackTraceLevel: "sometimes"},
			{TimeEncoding: "sundial"},
		} {
			_, err := NewZapLogger(opts)
			assert.ErrorIs(t, err, errInvalidLoggingOption, "options %+v", opts)
		}
	})
}

func TestFromContext(t *testing.T) {
	fac, logs := observer.New(zap.InfoLevel)
	rootFac, rootLogs := observer.New(zap.InfoLevel)

	SetLogger(zapr.NewLogger(zap.New(rootFac)))
	defer SetLogger(logr.Discard())

	FromContext(context.TODO()).Info("to root")
	assert.Equal(t, 1, rootLogs.Len())

	ctx := IntoContext(context.TODO(), zapr.NewLogger(zap.New(fac)))
	FromContext(ctx, "unit", "orange-unit").Info("to context")
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, 1, rootLogs.Len())
	assert.Equal(t, "orange-unit", logs.All()[0].ContextMap()["unit"])

	AuditLog(ctx).Info("audited")
	assert.Equal(t, "true", logs.All()[1].ContextMap()["audit"])
}

func TestTimeTrack(t *testing.T) {
	//given
	fac, logs := observer.New(zap.DebugLevel)
	logger := zapr.NewLogger(zap.New(fac))
	//when
	TimeTrack(logger, time.Now().Add(time.Duration(-5)*time.Second), "MSG")
	//then
	output := logs.AllUntimed()
	assert.Equal(t, 1, len(output), "Unexpected number of logs.")
	assert.Equal(t, 1, len(output[0].Context), "Unexpected context on first log.")
	assert.Equal(t, zapcore.DurationType, output[0].Context[0].Type, "Unexpected context type")
	assert.Equal(t, "time", output[0].Context[0].Key, "Unexpected context key")
	assert.True(t, output[0].Context[0].Integer > 0, "Unexpected context value %d", output[0].Context[0].Integer)
	assert.Equal(t, zapcore.DebugLevel, output[0].Entry.Level)
	assert.Equal(t, "Time took to MSG", output[0].Entry.Message)
}
