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

// Package httptransport contains the HTTP round trippers used by the clients of the credential storage backends.
package httptransport

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Instruments are the metrics to update after a single HTTP round trip. Counters are incremented, observers
// (histograms or summaries) observe the duration of the round trip in seconds.
type Instruments struct {
	Counters  []prometheus.Counter
	Observers []prometheus.Observer
}

// InstrumentPicker selects the instruments based on the outcome of the round trip. It is called concurrently
// from the HTTP clients, so it must be thread-safe.
type InstrumentPicker func(r *http.Request, resp *http.Response, err error) Instruments

// MethodAndStatusInstruments returns a picker labeling the provided vectors by the request method and
// the response status code. Failed round trips are labeled with the "error" status.
func MethodAndStatusInstruments(counter *prometheus.CounterVec, observer prometheus.ObserverVec) InstrumentPicker {
	return func(r *http.Request, resp *http.Response, err error) Instruments {
		status := "error"
		if err == nil && resp != nil {
			status = strconv.Itoa(resp.StatusCode)
		}

		ret := Instruments{}
		if counter != nil {
			ret.Counters = append(ret.Counters, counter.WithLabelValues(r.Method, status))
		}
		if observer != nil {
			ret.Observers = append(ret.Observers, observer.WithLabelValues(r.Method, status))
		}
		return ret
	}
}

type instrumentsContextKeyType struct{}

var instrumentsContextKey = instrumentsContextKeyType{}

// ContextWithInstruments returns a context carrying the picker. Requests made with this context through
// the InstrumentedRoundTripper use it instead of the default picker of the round tripper.
func ContextWithInstruments(ctx context.Context, picker InstrumentPicker) context.Context {
	return context.WithValue(ctx, instrumentsContextKey, picker)
}

// InstrumentedRoundTripper collects the metrics of the HTTP requests made through the wrapped round tripper.
type InstrumentedRoundTripper struct {
	http.RoundTripper
	// Default is used when the request context doesn't carry a picker. If nil, such requests are not measured.
	Default InstrumentPicker
}

var _ http.RoundTripper = (*InstrumentedRoundTripper)(nil)

func (t InstrumentedRoundTripper) RoundTrip(request *http.Request) (*http.Response, error) {
	picker, _ := request.Context().Value(instrumentsContextKey).(InstrumentPicker)
	if picker == nil {
		picker = t.Default
	}

	rt := t.RoundTripper
	if rt == nil {
		rt = http.DefaultTransport
	}

	if picker == nil {
		//nolint:wrapcheck // we're returning the error from the underlying http round trip. this IMHO should not be wrapped.
		return rt.RoundTrip(request)
	}

	start := time.Now()
	response, err := rt.RoundTrip(request)
	dur := time.Since(start).Seconds()

	instruments := picker(request, response, err)
	for _, c := range instruments.Counters {
		c.Inc()
	}
	for _, o := range instruments.Observers {
		o.Observe(dur)
	}

	//nolint:wrapcheck // we're returning the error from the underlying http round trip. this IMHO should not be wrapped.
	return response, err
}
