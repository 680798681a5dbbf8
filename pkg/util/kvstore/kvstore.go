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

package kvstore

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// KeyValueStore is durable storage of named stores holding string values
type KeyValueStore interface {
	GetValue(ctx context.Context, storeName, key string) (string, error)
	SetValue(ctx context.Context, storeName, key, value string) error
	GetStore(ctx context.Context, storeName string) (map[string]string, error)
	ClearStore(ctx context.Context, storeName string) error
}

type NotExistError struct {
	StoreName string
	KeyName   string
}

func NewNotExistError(storeName, key string) *NotExistError {
	return &NotExistError{
		StoreName: storeName,
		KeyName:   key,
	}
}

func (e *NotExistError) Error() string {
	if e.KeyName == "" {
		return fmt.Sprintf("store %s does not exist", e.StoreName)
	}
	return fmt.Sprintf("key %s does not exist in store %s", e.KeyName, e.StoreName)
}

// IsNotExist returns true if the store or key is missing
func IsNotExist(err error) bool {
	_, ok := errors.Cause(err).(*NotExistError)
	return ok
}

// MemoryStore is an in-process KeyValueStore. It is lost on restart and only suited to tests and
// dry runs.
type MemoryStore struct {
	stores map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stores: map[string]map[string]string{}}
}

func (m *MemoryStore) GetValue(ctx context.Context, storeName, key string) (string, error) {
	store, ok := m.stores[storeName]
	if !ok {
		return "", NewNotExistError(storeName, "")
	}
	val, ok := store[key]
	if !ok {
		return "", NewNotExistError(storeName, key)
	}
	return val, nil
}

func (m *MemoryStore) SetValue(ctx context.Context, storeName, key, value string) error {
	if _, ok := m.stores[storeName]; !ok {
		m.stores[storeName] = map[string]string{}
	}
	m.stores[storeName][key] = value
	return nil
}

func (m *MemoryStore) GetStore(ctx context.Context, storeName string) (map[string]string, error) {
	store, ok := m.stores[storeName]
	if !ok {
		return nil, NewNotExistError(storeName, "")
	}
	out := make(map[string]string, len(store))
	for k, v := range store {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) ClearStore(ctx context.Context, storeName string) error {
	delete(m.stores, storeName)
	return nil
}
