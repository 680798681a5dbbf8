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
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rook/poolsets/pkg/util/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/pointer"
)

func testRegistry() *Registry {
	r := NewRegistry()
	fs := NewPoolSet("fs", PolicyAutoscale)
	fs.Application["cephfs"] = map[string]string{}
	fs.PoolProperties[2] = &PoolProperties{TargetRatio: pointer.Float64(0.1)}
	fs.PoolProperties[3] = &PoolProperties{TargetSize: pointer.Int64(100e9)}
	r.Add(fs)

	rbd := NewPoolSet("rbd", PolicyWarn)
	rbd.Application["rbd"] = map[string]string{"owner": "team-a"}
	rbd.PoolProperties[1] = &PoolProperties{}
	r.Add(rbd)

	creating := NewPoolSet("new", PolicyAutoscale)
	creating.Application["rbd"] = map[string]string{}
	creating.Intents = []PoolIntent{{Application: "rbd", Weight: 1, Name: "new", InitialPGNum: 32, CrushRule: DefaultRule, TargetRatio: pointer.Float64(0.25)}}
	r.Add(creating)
	return r
}

func TestRegistryRoundTrip(t *testing.T) {
	r := testRegistry()
	data, err := r.Encode()
	require.NoError(t, err)

	decoded, err := DecodeRegistry(data)
	require.NoError(t, err)
	if diff := cmp.Diff(r.List(), decoded.List()); diff != "" {
		t.Errorf("registry changed after round trip (-want +got):\n%s", diff)
	}
	assert.False(t, decoded.Dirty())

	ps, ok := decoded.Get("new")
	require.True(t, ok)
	assert.True(t, ps.Creating())
	ps, ok = decoded.FindByPool(3)
	require.True(t, ok)
	assert.Equal(t, "fs", ps.Name)
	assert.Equal(t, []int{2, 3}, ps.PoolIDs())
}

func TestRegistryDocumentShape(t *testing.T) {
	data, err := testRegistry().Encode()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, float64(1), doc["version"])
	assert.Equal(t, float64(1), doc["compat_version"])

	poolsets := doc["poolsets"].([]interface{})
	require.Equal(t, 3, len(poolsets))
	fs := poolsets[0].(map[string]interface{})
	assert.Equal(t, "fs", fs["name"])
	assert.Equal(t, "autoscale", fs["policy"])
	assert.Equal(t, float64(1), fs["compat_version"])
	props := fs["pool_properties"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"target_size": nil, "target_ratio": 0.1}, props["2"])
	assert.NotContains(t, fs, "intents")
}

func TestDecodeRegistryErrors(t *testing.T) {
	_, err := DecodeRegistry([]byte(`{"version":2,"compat_version":2,"poolsets":[]}`))
	assert.Error(t, err)

	_, err = DecodeRegistry([]byte(`{"version":1,"compat_version":1,"poolsets":[{"version":3,"compat_version":3,"name":"a","policy":"warn"}]}`))
	assert.Error(t, err)

	_, err = DecodeRegistry([]byte(`{"version":1,"compat_version":1,"poolsets":[{"name":"a","policy":"sometimes"}]}`))
	assert.Error(t, err)

	_, err = DecodeRegistry([]byte(`{"version":1,"compat_version":1,"poolsets":[{"policy":"warn"}]}`))
	assert.Error(t, err)

	_, err = DecodeRegistry([]byte(`not json`))
	assert.Error(t, err)

	// older documents without application or properties still load
	r, err := DecodeRegistry([]byte(`{"version":1,"compat_version":1,"poolsets":[{"name":"a","policy":"silent","pool_properties":{"4":null}}]}`))
	require.NoError(t, err)
	ps, ok := r.Get("a")
	require.True(t, ok)
	assert.NotNil(t, ps.Application)
	assert.Equal(t, &PoolProperties{}, ps.PoolProperties[4])
}

func TestLoadAndSaveRegistry(t *testing.T) {
	ctx := context.TODO()
	store := kvstore.NewMemoryStore()

	r, err := LoadRegistry(ctx, store, DefaultStoreName)
	require.NoError(t, err)
	assert.Empty(t, r.List())

	// nothing to save
	require.NoError(t, r.Save(ctx, store, DefaultStoreName))
	_, err = store.GetValue(ctx, DefaultStoreName, stateKey)
	assert.True(t, kvstore.IsNotExist(err))

	r = testRegistry()
	assert.True(t, r.Dirty())
	require.NoError(t, r.Save(ctx, store, DefaultStoreName))
	assert.False(t, r.Dirty())

	loaded, err := LoadRegistry(ctx, store, DefaultStoreName)
	require.NoError(t, err)
	if diff := cmp.Diff(r.List(), loaded.List()); diff != "" {
		t.Errorf("loaded registry differs (-want +got):\n%s", diff)
	}

	r.Remove("rbd")
	r.Remove("missing")
	require.NoError(t, r.Save(ctx, store, DefaultStoreName))
	loaded, err = LoadRegistry(ctx, store, DefaultStoreName)
	require.NoError(t, err)
	_, ok := loaded.Get("rbd")
	assert.False(t, ok)
}

func TestDeepCopy(t *testing.T) {
	orig, _ := testRegistry().Get("rbd")
	copied := orig.DeepCopy()
	copied.Application["rbd"]["owner"] = "team-b"
	copied.PoolProperties[1].TargetRatio = pointer.Float64(1)
	assert.Equal(t, "team-a", orig.Application["rbd"]["owner"])
	assert.Nil(t, orig.PoolProperties[1].TargetRatio)
}
