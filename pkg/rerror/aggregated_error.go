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

package rerror

import (
	"strings"
)

// AggregatedError collects the errors of several independent steps, e.g. the resolution of the individual
// persistence units of an application. errors.Is and errors.As see all the collected errors.
type AggregatedError struct {
	// Subject describes what the errors relate to. It prefixes the error message if not empty.
	Subject string
	errors  []error
}

// AggregateNonNilErrors returns nil if all the errors are nil, the single non-nil error as is or an
// AggregatedError of all the non-nil errors.
func AggregateNonNilErrors(errs ...error) error {
	aggregated := &AggregatedError{}
	aggregated.Add(errs...)
	return aggregated.ErrorOrNil()
}

func NewAggregatedError(subject string, errs ...error) *AggregatedError {
	ae := &AggregatedError{Subject: subject}
	ae.Add(errs...)
	return ae
}

// Add adds the non-nil errors to the aggregate.
func (ae *AggregatedError) Add(errs ...error) {
	for _, e := range errs {
		if e != nil {
			ae.errors = append(ae.errors, e)
		}
	}
}

// ErrorOrNil returns nil if no error was added, the only error if there is just one and no subject or the
// aggregate itself otherwise.
func (ae *AggregatedError) ErrorOrNil() error {
	switch {
	case ae == nil || len(ae.errors) == 0:
		return nil
	case len(ae.errors) == 1 && ae.Subject == "":
		return ae.errors[0]
	default:
		return ae
	}
}

func (ae *AggregatedError) Error() string {
	strs := make([]string, len(ae.errors))
	for i, e := range ae.errors {
		strs[i] = e.Error()
	}

	msg := strings.Join(strs, ", ")
	if ae.Subject == "" {
		return msg
	}
	return ae.Subject + ": " + msg
}

func (ae *AggregatedError) HasErrors() bool {
	return len(ae.errors) > 0
}

func (ae *AggregatedError) Len() int {
	return len(ae.errors)
}

func (ae *AggregatedError) Unwrap() []error {
	return ae.errors
}
