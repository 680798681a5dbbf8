/*
Copyright 2017 The Rook Authors. All rights reserved.

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
	"os"
	"path"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestStringFlags(t *testing.T) {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Creates a test arg",
	}

	var arg1 string
	var arg2 string
	cmd.Flags().StringVar(&arg1, "foo", "", "test 1")
	cmd.Flags().StringVar(&arg2, "bar", "", "test 2")

	// both arguments are missing
	err := VerifyRequiredFlags(cmd, []string{"foo", "bar"})
	assert.Equal(t, "foo,bar are required for test", err.Error())

	// one argument is missing
	err = cmd.Flags().Set("foo", "fooval")
	assert.NoError(t, err)
	err = VerifyRequiredFlags(cmd, []string{"foo", "bar"})
	assert.Equal(t, "bar is required for test", err.Error())

	// no arguments are missing
	err = cmd.Flags().Set("bar", "barval")
	assert.NoError(t, err)
	err = VerifyRequiredFlags(cmd, []string{"foo", "bar"})
	assert.Nil(t, err)
}

func TestGetFlagsAndValues(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}

	var arg1 string
	var arg2 string
	cmd.Flags().StringVar(&arg1, "foo-data", "", "test 1")
	cmd.Flags().StringVar(&arg2, "admin-secret", "", "test 2")
	assert.NoError(t, cmd.Flags().Set("foo-data", "1234"))
	assert.NoError(t, cmd.Flags().Set("admin-secret", "AQB=="))

	flagValues := GetFlagsAndValues(cmd.Flags(), "")
	assert.Equal(t, 2, len(flagValues))
	assert.Contains(t, flagValues, "--foo-data=1234")
	assert.Contains(t, flagValues, "--admin-secret=AQB==")

	// the --admin-secret flag should be redacted
	flagValues = GetFlagsAndValues(cmd.Flags(), "secret")
	assert.Contains(t, flagValues, "--foo-data=1234")
	assert.Contains(t, flagValues, "--admin-secret=*****")
}

func TestSetFlagsFromEnvAndFile(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	var interval string
	var target, maxPGs int
	cmd.Flags().StringVar(&interval, "interval", "5s", "")
	cmd.Flags().IntVar(&target, "target-pgs-per-osd", 0, "")
	cmd.Flags().IntVar(&maxPGs, "max-pgs-per-osd", 0, "")

	t.Setenv("POOLSETS_MAX_PGS_PER_OSD", "300")
	SetFlagsFromEnv(cmd.Flags(), "POOLSETS")
	assert.Equal(t, 300, maxPGs)

	configFile := path.Join(t.TempDir(), "poolsets.yaml")
	assert.NoError(t, os.WriteFile(configFile, []byte("interval: 10s\ntarget-pgs-per-osd: 200\nmax-pgs-per-osd: 500\n"), 0o600))
	assert.NoError(t, SetFlagsFromFile(cmd.Flags(), configFile))
	assert.Equal(t, "10s", interval)
	assert.Equal(t, 200, target)
	// the environment wins over the file
	assert.Equal(t, 300, maxPGs)

	assert.NoError(t, os.WriteFile(configFile, []byte("bogus: 1\n"), 0o600))
	assert.Error(t, SetFlagsFromFile(cmd.Flags(), configFile))
	assert.Error(t, SetFlagsFromFile(cmd.Flags(), path.Join(t.TempDir(), "missing.yaml")))
}
