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

package flags

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/coreos/pkg/capnslog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"
)

var logger = capnslog.NewPackageLogger("github.com/rook/poolsets", "flags")

func VerifyRequiredFlags(cmd *cobra.Command, requiredFlags []string) error {
	var missingFlags []string
	for _, reqFlag := range requiredFlags {
		val, err := cmd.Flags().GetString(reqFlag)
		if err != nil || val == "" {
			missingFlags = append(missingFlags, reqFlag)
		}
	}

	return createRequiredFlagError(cmd.Name(), missingFlags)
}

func createRequiredFlagError(name string, flags []string) error {
	if len(flags) == 0 {
		return nil
	}

	if len(flags) == 1 {
		return fmt.Errorf("%s is required for %s", flags[0], name)
	}

	return fmt.Errorf("%s are required for %s", strings.Join(flags, ","), name)
}

// SetFlagsFromEnv sets every flag from its <prefix>_<FLAG_NAME> environment variable. It must run
// before the command line is parsed so that explicit arguments win.
func SetFlagsFromEnv(flags *pflag.FlagSet, prefix string) {
	var errorFlag bool
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		envVar := prefix + "_" + strings.Replace(strings.ToUpper(f.Name), "-", "_", -1)
		value := os.Getenv(envVar)
		if value != "" {
			// Set the environment variable. Will override default values, but be overridden by command line parameters.
			if err = flags.Set(f.Name, value); err != nil {
				errorFlag = true
			}
		}
	})
	if errorFlag {
		logger.Error("failed to set flag ", err)
	}
}

// SetFlagsFromFile sets flags from a yaml (or json) document of flag names to values. Flags
// already set from the environment or the command line are left alone.
func SetFlagsFromFile(flags *pflag.FlagSet, path string) error {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return errors.Wrapf(err, "failed to read config file %q", path)
	}

	values := map[string]interface{}{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return errors.Wrapf(err, "failed to parse config file %q", path)
	}

	for name, value := range values {
		f := flags.Lookup(name)
		if f == nil {
			return errors.Errorf("unknown setting %q in config file %q", name, path)
		}
		if f.Changed {
			logger.Debugf("flag %q is already set, ignoring the value from %q", name, path)
			continue
		}
		if err := flags.Set(name, fmt.Sprintf("%v", value)); err != nil {
			return errors.Wrapf(err, "invalid value for %q in config file %q", name, path)
		}
	}
	return nil
}

// GetFlagsAndValues returns all flags and their values as a slice with elements in the format of
// "--<flag>=<value>"
func GetFlagsAndValues(flags *pflag.FlagSet, excludeFilter string) []string {
	var flagValues []string

	flags.VisitAll(func(f *pflag.Flag) {
		val := f.Value.String()
		if excludeFilter != "" {
			if matched, _ := regexp.Match(excludeFilter, []byte(f.Name)); matched {
				val = "*****"
			}
		}

		flagValues = append(flagValues, fmt.Sprintf("--%s=%s", f.Name, val))
	})

	return flagValues
}
