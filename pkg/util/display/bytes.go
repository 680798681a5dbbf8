/*
Copyright 2016 The Rook Authors. All rights reserved.

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

package display

import (
	"fmt"
)

const (
	KiB uint64 = 1024
	MiB uint64 = KiB * 1024
	GiB uint64 = MiB * 1024
	TiB uint64 = GiB * 1024
	PiB uint64 = TiB * 1024
	EiB uint64 = PiB * 1024
)

var units = []struct {
	size  uint64
	label string
}{
	{EiB, "EiB"},
	{PiB, "PiB"},
	{TiB, "TiB"},
	{GiB, "GiB"},
	{MiB, "MiB"},
	{KiB, "KiB"},
}

func BytesToString(b uint64) string {
	for _, u := range units {
		if b >= u.size {
			return fmt.Sprintf("%.2f %s", float64(b)/float64(u.size), u.label)
		}
	}
	return fmt.Sprintf("%d B", b)
}

// SignedBytesToString formats a byte count that may be negative, e.g. a capacity deficit
func SignedBytesToString(b int64) string {
	if b < 0 {
		return "-" + BytesToString(uint64(-b))
	}
	return BytesToString(uint64(b))
}
