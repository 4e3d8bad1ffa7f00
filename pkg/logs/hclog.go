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
	"io"
	"log"
	"strings"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-hclog"
)

// NewHCLogAdapter creates a new adapter, wrapping an underlying
// logr.Logger inside an implementation that emulates hclog.Logger.
func NewHCLogAdapter(wrapped logr.Logger) *HCLogAdapter {
	return &HCLogAdapter{
		logger: wrapped,
	}
}

// HCLogAdapter is an adapter that allows to use a logr.Logger where
// an hclog.Logger is expected. Trace and debug messages are mapped to
// the logr verbosity levels, warnings are info messages with a "level"
// marker.
type HCLogAdapter struct {
	name   string
	logger logr.Logger
	args   []interface{}
}

// This variable is a guard to ensure that HCLogAdapter actually satisfies the hclog.Logger interface
var _ hclog.Logger = (*HCLogAdapter)(nil)

func (l *HCLogAdapter) clone() *HCLogAdapter {
	return &HCLogAdapter{
		name:   l.name,
		logger: l.logger,
		args:   l.args,
	}
}

func (l *HCLogAdapter) Log(level hclog.Level, msg string, args ...interface{}) {
	switch level {
	case hclog.Trace:
		l.Trace(msg, args...)
	case hclog.Debug:
		l.Debug(msg, args...)
	case hclog.NoLevel, hclog.Info:
		l.Info(msg, args...)
	case hclog.Warn:
		l.Warn(msg, args...)
	case hclog.Error:
		l.Error(msg, args...)
	case hclog.Off:
		// do nothing
	}
}

func (l *HCLogAdapter) Trace(msg string, args ...interface{}) {
	l.logger.V(TraceLevel).Info(msg, sanitize(args)...)
}

func (l *HCLogAdapter) Debug(msg string, args ...interface{}) {
	l.logger.V(DebugLevel).Info(msg, sanitize(args)...)
}

func (l *HCLogAdapter) Info(msg string, args ...interface{}) {
	l.logger.Info(msg, sanitize(args)...)
}

func (l *HCLogAdapter) Warn(msg string, args ...interface{}) {
	l.logger.Info(msg, append([]interface{}{"level", "warn"}, sanitize(args)...)...)
}

// Error logs the message on the error level. If one of the values is an error, it is passed to the logr.Logger as
// the error of the message.
func (l *HCLogAdapter) Error(msg string, args ...interface{}) {
	var err error
	kvs := sanitize(args)
	rest := make([]interface{}, 0, len(kvs))
	for i := 0; i < len(kvs); i += 2 {
		if e, ok := kvs[i+1].(error); ok && err == nil {
			err = e
			continue
		}
		rest = append(rest, kvs[i], kvs[i+1])
	}
	l.logger.Error(err, msg, rest...)
}

// sanitize makes sure the key-value pairs have string keys and come in pairs. hclog is more lenient than logr in
// this regard.
func sanitize(args []interface{}) []interface{} {
	if len(args)%2 != 0 {
		args = append(args, hclog.MissingKey)
	}
	ret := make([]interface{}, 0, len(args))
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = hclog.MissingKey
		}
		ret = append(ret, key, args[i+1])
	}
	return ret
}

func (l *HCLogAdapter) IsTrace() bool {
	return l.logger.V(TraceLevel).Enabled()
}

func (l *HCLogAdapter) IsDebug() bool {
	return l.logger.V(DebugLevel).Enabled()
}

func (l *HCLogAdapter) IsInfo() bool {
	return l.logger.Enabled()
}

func (l *HCLogAdapter) IsWarn() bool {
	return l.logger.Enabled()
}

func (l *HCLogAdapter) IsError() bool {
	return l.logger.GetSink() != nil
}

// ImpliedArgs returns the key-value pairs added by With.
func (l *HCLogAdapter) ImpliedArgs() []interface{} {
	return l.args
}

// With returns a logger with always-presented key-value pairs.
func (l *HCLogAdapter) With(args ...interface{}) hclog.Logger {
	kvs := sanitize(args)
	nl := l.clone()
	nl.logger = l.logger.WithValues(kvs...)
	nl.args = append(append([]interface{}{}, l.args...), kvs...)
	return nl
}

// Name returns a logger's name (if presented).
func (l *HCLogAdapter) Name() string {
	return l.name
}

// Named returns a logger with the name appended to the current one.
func (l *HCLogAdapter) Named(name string) hclog.Logger {
	nl := l.clone()
	if l.name == "" {
		nl.name = name
	} else {
		nl.name = l.name + "." + name
	}
	nl.logger = l.logger.WithName(name)
	return nl
}

// ResetNamed returns a logger with the specific name. The underlying logr.Logger cannot forget its name, so the
// new name is only reflected by the Name method.
func (l *HCLogAdapter) ResetNamed(name string) hclog.Logger {
	nl := l.clone()
	nl.name = name
	return nl
}

// SetLevel has no implementation, the verbosity is controlled by the logr sink.
func (l *HCLogAdapter) SetLevel(level hclog.Level) {
}

func (l *HCLogAdapter) GetLevel() hclog.Level {
	switch {
	case l.IsTrace():
		return hclog.Trace
	case l.IsDebug():
		return hclog.Debug
	case l.IsInfo():
		return hclog.Info
	case l.IsError():
		return hclog.Error
	default:
		return hclog.Off
	}
}

func (l *HCLogAdapter) StandardLogger(opts *hclog.StandardLoggerOptions) *log.Logger {
	return log.New(l.StandardWriter(opts), "", 0)
}

// StandardWriter returns a writer that logs every written line as an info message.
func (l *HCLogAdapter) StandardWriter(opts *hclog.StandardLoggerOptions) io.Writer {
	return &lineWriter{logger: l.logger}
}

type lineWriter struct {
	logger logr.Logger
}

func (w *lineWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			w.logger.Info(line)
		}
	}
	return len(p), nil
}
