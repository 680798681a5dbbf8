/*
Copyright 2018 The Rook Authors. All rights reserved.

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

package util

import (
	"github.com/coreos/pkg/capnslog"
)

var logger = capnslog.NewPackageLogger("github.com/rook/poolsets", "util")

const DefaultLogLevel = capnslog.INFO

// SetGlobalLogLevel parses the user selection and applies it to every package logger. An
// unparsable selection falls back to the default level.
func SetGlobalLogLevel(userLogLevelSelection string, logger *capnslog.PackageLogger) capnslog.LogLevel {
	// trace logging can leak the admin key in command lines, so plain "TRACE" only gets debug
	// logs. The explicit "TRACE_INSECURE" level is needed for real trace output.
	switch userLogLevelSelection {
	case "TRACE":
		userLogLevelSelection = "DEBUG"
	case "TRACE_INSECURE":
		userLogLevelSelection = "TRACE"
	}

	logLevel, err := capnslog.ParseLevel(userLogLevelSelection)
	if err != nil {
		logger.Errorf("failed to parse log level %q. defaulting to %q. %v", userLogLevelSelection, DefaultLogLevel.String(), err)
		logLevel = DefaultLogLevel
	}

	if logLevel > capnslog.TRACE {
		logger.Infof("not setting log level %q more verbose than TRACE. reverting to default %q", logLevel.String(), DefaultLogLevel.String())
		logLevel = DefaultLogLevel
	}

	capnslog.SetGlobalLogLevel(logLevel)
	return logLevel
}
