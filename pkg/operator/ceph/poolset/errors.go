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
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode classifies a rejected request
type ErrorCode int

const (
	// ErrInvalid is a malformed request
	ErrInvalid ErrorCode = iota
	// ErrNotFound is a request naming an unknown poolset
	ErrNotFound
	// ErrExists is a request that conflicts with an existing poolset
	ErrExists
)

// ConfigError is returned for requests that are rejected before any state is changed
type ConfigError struct {
	Code   ErrorCode
	Reason string
}

func (e *ConfigError) Error() string {
	return e.Reason
}

func newConfigErrorf(code ErrorCode, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigError returns true if the request was rejected synchronously
func IsConfigError(err error) bool {
	var cerr *ConfigError
	return errors.As(err, &cerr)
}

// IsNotFound returns true if the request named a poolset that does not exist
func IsNotFound(err error) bool {
	return hasCode(err, ErrNotFound)
}

// IsAlreadyExists returns true if the request conflicts with an existing poolset
func IsAlreadyExists(err error) bool {
	return hasCode(err, ErrExists)
}

func hasCode(err error, code ErrorCode) bool {
	var cerr *ConfigError
	if errors.As(err, &cerr) {
		return cerr.Code == code
	}
	return false
}
