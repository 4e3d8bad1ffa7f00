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

// Package properties contains the helpers normalizing the raw string properties of the declared resources.
package properties

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidValue = errors.New("invalid property value")

// Normalize returns a copy of the properties with whitespace trimmed from the keys and values. Properties with
// empty keys are dropped.
func Normalize(raw map[string]string) map[string]string {
	ret := make(map[string]string, len(raw))
	for k, v := range raw {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		ret[k] = strings.TrimSpace(v)
	}
	return ret
}

// Bool parses the value of the named property as a boolean. Surrounding whitespace is ignored, so "true " is
// true. If the property is not present (or is blank) nil is returned.
func Bool(props map[string]string, key string) (*bool, error) {
	raw, ok := props[key]
	if !ok {
		return nil, nil
	}
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return nil, nil
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidValue, key, raw)
	}
	return &b, nil
}

// FormatBool is the inverse of Bool.
func FormatBool(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}

// List splits the comma-separated value into its trimmed, non-empty and unique items, keeping their order.
func List(value string) []string {
	var ret []string
	seen := map[string]bool{}
	for _, v := range strings.Split(value, ",") {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		ret = append(ret, v)
	}
	return ret
}

// JoinList is the inverse of List.
func JoinList(values []string) string {
	return strings.Join(values, ",")
}
