/*
Copyright 2019 The Rook Authors. All rights reserved.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package poolset

import (
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/api/resource"
)

// NearestPowerOfTwo rounds n to the closest power of two, preferring the larger one on a tie.
// Anything below one rounds to one.
func NearestPowerOfTwo(n float64) int {
	v := int(n)
	if v < 1 {
		return 1
	}
	high := 1
	for high < v {
		high <<= 1
	}
	low := high >> 1
	if float64(high)-n > n-float64(low) {
		return low
	}
	return high
}

// ParseFriendlySize converts a size such as "10MB", "100gb" or "2048" into bytes. Units are
// decimal and case insensitive, the trailing "b" is optional.
func ParseFriendlySize(input string) (int64, error) {
	if n, err := strconv.ParseInt(input, 10, 64); err == nil {
		return n, nil
	}

	s := strings.ToLower(input)
	s = strings.TrimSuffix(s, "b")
	if len(s) < 2 {
		return 0, newConfigErrorf(ErrInvalid, "invalid size value %q", input)
	}
	unit := s[len(s)-1:]
	digits := s[:len(s)-1]
	if !strings.Contains("mgtp", unit) {
		return 0, newConfigErrorf(ErrInvalid, "invalid size value %q", input)
	}
	if _, err := strconv.ParseUint(digits, 10, 64); err != nil {
		return 0, newConfigErrorf(ErrInvalid, "invalid size value %q", input)
	}

	q, err := resource.ParseQuantity(digits + strings.ToUpper(unit))
	if err != nil {
		return 0, newConfigErrorf(ErrInvalid, "invalid size value %q. %v", input, err)
	}
	return q.Value(), nil
}

// SizeSpec is the requested capacity of a new poolset, either a share of the crush root or a
// byte count
type SizeSpec struct {
	Ratio *float64
	Bytes *int64
}

// ParseSizeSpec accepts "N%" or anything ParseFriendlySize does
func ParseSizeSpec(input string) (SizeSpec, error) {
	if strings.HasSuffix(input, "%") {
		percent, err := strconv.Atoi(strings.TrimSuffix(input, "%"))
		if err != nil || percent < 0 {
			return SizeSpec{}, newConfigErrorf(ErrInvalid, "invalid percentage %q", input)
		}
		ratio := float64(percent) / 100.0
		return SizeSpec{Ratio: &ratio}, nil
	}

	b, err := ParseFriendlySize(input)
	if err != nil {
		return SizeSpec{}, err
	}
	if b < 0 {
		return SizeSpec{}, newConfigErrorf(ErrInvalid, "invalid size value %q", input)
	}
	return SizeSpec{Bytes: &b}, nil
}
