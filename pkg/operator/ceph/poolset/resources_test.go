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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tib = int64(1024 * 1024 * 1024 * 1024)

func TestComputeSubtreeStatus(t *testing.T) {
	f := newFakeCluster(4, 4)
	f.rules = append(f.rules, fakeRule{name: DefaultSSDRule, root: DefaultRoot + "~ssd"})
	a := f.addPool("a", 8, nil)
	a.pgNumTarget = 16
	m := f.addPool("m", 8, nil)
	m.rule = DefaultSSDRule

	state, err := LoadClusterState(f)
	require.NoError(t, err)

	statuses := ComputeSubtreeStatus(state, []string{DefaultRule, DefaultSSDRule, "missing"}, 100)
	require.Equal(t, 2, len(statuses))

	// the shadow tree shares the ssd osds with the default root, both are accounted as one budget
	for _, rule := range []string{DefaultRule, DefaultSSDRule} {
		s := statuses[rule]
		assert.True(t, s.Overlapping, rule)
		assert.Equal(t, "default,default~ssd", s.Budget, rule)
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, s.OSDs, rule)
		assert.Equal(t, 8, s.OSDCount, rule)
		assert.Equal(t, 800, s.PGTarget, rule)
		// pool a counts twice its PGs since it is splitting to 16, the shared osds count once
		assert.Equal(t, 8*3*2+8*3, s.PGCurrent, rule)
		assert.Equal(t, 8*tib, s.Capacity, rule)
		assert.Equal(t, 2, s.PoolCount, rule)
		assert.Equal(t, 800-72, s.Available(), rule)
	}
	assert.Equal(t, DefaultRoot, statuses[DefaultRule].Root)
	assert.Equal(t, "default~ssd", statuses[DefaultSSDRule].Root)
}

func TestComputeSubtreeStatusSeparateBudgets(t *testing.T) {
	f := newFakeCluster(4, 4)
	f.rules = append(f.rules, fakeRule{name: DefaultSSDRule, root: DefaultRoot + "~ssd"}, fakeRule{name: "other", root: "elsewhere"})
	f.addPool("a", 8, nil)

	state, err := LoadClusterState(f)
	require.NoError(t, err)

	// without the shadow tree the default root has a budget of its own
	statuses := ComputeSubtreeStatus(state, []string{DefaultRule, "other"}, 100)
	require.Equal(t, 2, len(statuses))
	def := statuses[DefaultRule]
	assert.False(t, def.Overlapping)
	assert.Equal(t, DefaultRoot, def.Budget)
	assert.Equal(t, 1, def.PoolCount)
	other := statuses["other"]
	assert.False(t, other.Overlapping)
	assert.Equal(t, "elsewhere", other.Budget)
	assert.Equal(t, 0, other.PGTarget)

	// the tree without osds in common stays apart from the shared budget
	statuses = ComputeSubtreeStatus(state, []string{DefaultRule, DefaultSSDRule, "other"}, 100)
	assert.Equal(t, "default,default~ssd", statuses[DefaultSSDRule].Budget)
	assert.Equal(t, "elsewhere", statuses["other"].Budget)
	assert.False(t, statuses["other"].Overlapping)
}

func TestComputeSubtreeStatusDisjoint(t *testing.T) {
	f := newFakeCluster(3, 0)
	f.addPool("a", 32, nil)
	f.addPool("b", 8, nil)

	state, err := LoadClusterState(f)
	require.NoError(t, err)
	statuses := ComputeSubtreeStatus(state, []string{DefaultRule}, 50)
	s := statuses[DefaultRule]
	require.NotNil(t, s)
	assert.Equal(t, 150, s.PGTarget)
	assert.Equal(t, (32+8)*3, s.PGCurrent)
	assert.Equal(t, 2, s.PoolCount)
	assert.False(t, s.Overlapping)
	assert.Equal(t, DefaultRoot, s.Budget)
	assert.Equal(t, 150-120, s.Available())
}

func TestRegistryRules(t *testing.T) {
	f := newFakeCluster(4, 4)
	f.rules = append(f.rules, fakeRule{name: DefaultSSDRule, root: DefaultRoot + "~ssd"})
	a := f.addPool("a", 8, nil)
	m := f.addPool("m", 8, nil)
	m.rule = DefaultSSDRule
	f.addPool("unmanaged", 8, nil)

	state, err := LoadClusterState(f)
	require.NoError(t, err)

	r := NewRegistry()
	assert.Empty(t, registryRules(r, state))

	ps := NewPoolSet("ps", PolicyWarn)
	ps.PoolProperties[a.id] = &PoolProperties{}
	ps.PoolProperties[m.id] = &PoolProperties{}
	ps.PoolProperties[42] = &PoolProperties{}
	r.Add(ps)
	assert.Equal(t, []string{DefaultRule, DefaultSSDRule}, registryRules(r, state))
}
