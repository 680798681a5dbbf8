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
	"sort"

	"github.com/pkg/errors"
	"github.com/rook/poolsets/pkg/util/kvstore"
)

const (
	// stateKey is the key of the registry document in the store
	stateKey = "state"

	encodingVersion       = 1
	encodingCompatVersion = 1
)

// PoolProperties are the hints kept for each pool of a poolset. They are not limits, only inputs
// to the PG count selection.
type PoolProperties struct {
	// TargetSize is the number of bytes the pool is expected to consume
	TargetSize *int64 `json:"target_size"`
	// TargetRatio is the fraction of the crush root the pool is expected to consume
	TargetRatio *float64 `json:"target_ratio"`
}

// PoolIntent is a pool that a poolset creation still has to create
type PoolIntent struct {
	Application  string   `json:"application"`
	Suffix       string   `json:"suffix"`
	Metadata     bool     `json:"metadata"`
	Weight       float64  `json:"weight"`
	Name         string   `json:"name"`
	InitialPGNum int      `json:"initial_pg_num"`
	CrushRule    string   `json:"crush_rule"`
	TargetSize   *int64   `json:"target_size,omitempty"`
	TargetRatio  *float64 `json:"target_ratio,omitempty"`
	// PoolID is set once the pool exists
	PoolID *int `json:"pool_id,omitempty"`
}

// PoolSet is a set of pools with a shared purpose, such as a filesystem or an object store zone
type PoolSet struct {
	Name   string `json:"name"`
	Policy Policy `json:"policy"`
	// Application maps the application name to its attributes
	Application    map[string]map[string]string `json:"application"`
	PoolProperties map[int]*PoolProperties      `json:"pool_properties"`
	// Intents is only non-empty while the creation of the poolset is incomplete
	Intents []PoolIntent `json:"intents,omitempty"`
}

// NewPoolSet returns an empty poolset
func NewPoolSet(name string, policy Policy) *PoolSet {
	return &PoolSet{
		Name:           name,
		Policy:         policy,
		Application:    map[string]map[string]string{},
		PoolProperties: map[int]*PoolProperties{},
	}
}

// PoolIDs returns the sorted ids of the member pools
func (p *PoolSet) PoolIDs() []int {
	ids := make([]int, 0, len(p.PoolProperties))
	for id := range p.PoolProperties {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// HasApplication returns true if the poolset serves the application
func (p *PoolSet) HasApplication(app string) bool {
	_, ok := p.Application[app]
	return ok
}

// Creating returns true while pools of the poolset remain to be created
func (p *PoolSet) Creating() bool {
	return len(p.Intents) > 0
}

// DeepCopy returns a copy sharing no state with the original
func (p *PoolSet) DeepCopy() *PoolSet {
	out := NewPoolSet(p.Name, p.Policy)
	for app, attrs := range p.Application {
		copied := make(map[string]string, len(attrs))
		for k, v := range attrs {
			copied[k] = v
		}
		out.Application[app] = copied
	}
	for id, props := range p.PoolProperties {
		copied := *props
		out.PoolProperties[id] = &copied
	}
	out.Intents = append(out.Intents, p.Intents...)
	return out
}

type poolSetRecord struct {
	Version       int `json:"version"`
	CompatVersion int `json:"compat_version"`
	*PoolSet
}

// Document is the persisted form of the registry
type Document struct {
	Version       int             `json:"version"`
	CompatVersion int             `json:"compat_version"`
	PoolSets      []poolSetRecord `json:"poolsets"`
}

// Registry owns the poolsets. It is only used from the control loop.
type Registry struct {
	poolsets map[string]*PoolSet
	dirty    bool
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{poolsets: map[string]*PoolSet{}}
}

// Get returns the named poolset
func (r *Registry) Get(name string) (*PoolSet, bool) {
	ps, ok := r.poolsets[name]
	return ps, ok
}

// Add inserts or replaces a poolset
func (r *Registry) Add(ps *PoolSet) {
	r.poolsets[ps.Name] = ps
	r.dirty = true
}

// Remove deletes a poolset
func (r *Registry) Remove(name string) {
	if _, ok := r.poolsets[name]; ok {
		delete(r.poolsets, name)
		r.dirty = true
	}
}

// List returns the poolsets sorted by name
func (r *Registry) List() []*PoolSet {
	names := make([]string, 0, len(r.poolsets))
	for name := range r.poolsets {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*PoolSet, 0, len(names))
	for _, name := range names {
		out = append(out, r.poolsets[name])
	}
	return out
}

// FindByPool returns the poolset owning the pool id
func (r *Registry) FindByPool(poolID int) (*PoolSet, bool) {
	for _, ps := range r.poolsets {
		if _, ok := ps.PoolProperties[poolID]; ok {
			return ps, true
		}
	}
	return nil, false
}

// pendingPoolNames returns the names of pools that incomplete creations intend to create
func (r *Registry) pendingPoolNames() map[string]bool {
	names := map[string]bool{}
	for _, ps := range r.poolsets {
		for _, intent := range ps.Intents {
			names[intent.Name] = true
		}
	}
	return names
}

// MarkDirty flags the registry as needing to be saved
func (r *Registry) MarkDirty() {
	r.dirty = true
}

// Dirty returns true if there are unsaved changes
func (r *Registry) Dirty() bool {
	return r.dirty
}

// Encode serializes the registry document
func (r *Registry) Encode() ([]byte, error) {
	doc := Document{
		Version:       encodingVersion,
		CompatVersion: encodingCompatVersion,
		PoolSets:      []poolSetRecord{},
	}
	for _, ps := range r.List() {
		doc.PoolSets = append(doc.PoolSets, poolSetRecord{
			Version:       encodingVersion,
			CompatVersion: encodingCompatVersion,
			PoolSet:       ps,
		})
	}
	return json.Marshal(doc)
}

// DecodeRegistry parses a registry document
func DecodeRegistry(data []byte) (*Registry, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal poolset registry")
	}
	if doc.CompatVersion > encodingCompatVersion {
		return nil, errors.Errorf("poolset registry compat version %d is newer than supported version %d", doc.CompatVersion, encodingCompatVersion)
	}

	r := NewRegistry()
	for _, record := range doc.PoolSets {
		if record.PoolSet == nil || record.Name == "" {
			return nil, errors.New("poolset registry contains a poolset without a name")
		}
		if record.CompatVersion > encodingCompatVersion {
			return nil, errors.Errorf("poolset %q compat version %d is newer than supported version %d", record.Name, record.CompatVersion, encodingCompatVersion)
		}
		ps := record.PoolSet
		if ps.Application == nil {
			ps.Application = map[string]map[string]string{}
		}
		if ps.PoolProperties == nil {
			ps.PoolProperties = map[int]*PoolProperties{}
		}
		for id, props := range ps.PoolProperties {
			if props == nil {
				ps.PoolProperties[id] = &PoolProperties{}
			}
		}
		if _, err := ParsePolicy(string(ps.Policy)); err != nil {
			return nil, errors.Wrapf(err, "invalid poolset %q", ps.Name)
		}
		r.poolsets[ps.Name] = ps
	}
	return r, nil
}

// LoadRegistry reads the registry document from the store. A missing document is an empty
// registry.
func LoadRegistry(ctx context.Context, store kvstore.KeyValueStore, storeName string) (*Registry, error) {
	data, err := store.GetValue(ctx, storeName, stateKey)
	if err != nil {
		if kvstore.IsNotExist(err) {
			logger.Infof("no poolset registry found in store %q, starting empty", storeName)
			return NewRegistry(), nil
		}
		return nil, errors.Wrapf(err, "failed to load poolset registry from store %q", storeName)
	}
	if data == "" {
		return NewRegistry(), nil
	}
	return DecodeRegistry([]byte(data))
}

// Save writes the registry document to the store if anything changed since the last save
func (r *Registry) Save(ctx context.Context, store kvstore.KeyValueStore, storeName string) error {
	if !r.dirty {
		return nil
	}
	data, err := r.Encode()
	if err != nil {
		return errors.Wrap(err, "failed to marshal poolset registry")
	}
	if err := store.SetValue(ctx, storeName, stateKey, string(data)); err != nil {
		return errors.Wrapf(err, "failed to save poolset registry to store %q", storeName)
	}
	r.dirty = false
	return nil
}
