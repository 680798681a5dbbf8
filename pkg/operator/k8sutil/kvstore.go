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

package k8sutil

import (
	"context"

	"github.com/rook/poolsets/pkg/util/kvstore"
	v1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/util/retry"
)

// ConfigMapKVStore keeps each store in a config map of the namespace, one data key per value
type ConfigMapKVStore struct {
	namespace string
	clientset kubernetes.Interface
	labels    map[string]string
}

var _ kvstore.KeyValueStore = &ConfigMapKVStore{}

func NewConfigMapKVStore(namespace string, clientset kubernetes.Interface, labels map[string]string) *ConfigMapKVStore {
	return &ConfigMapKVStore{
		namespace: namespace,
		clientset: clientset,
		labels:    labels,
	}
}

func (kv *ConfigMapKVStore) GetValue(ctx context.Context, storeName, key string) (string, error) {
	cm, err := kv.clientset.CoreV1().ConfigMaps(kv.namespace).Get(ctx, storeName, metav1.GetOptions{})
	if err != nil {
		if errors.IsNotFound(err) {
			return "", kvstore.NewNotExistError(storeName, "")
		}
		return "", err
	}

	val, ok := cm.Data[key]
	if !ok {
		return "", kvstore.NewNotExistError(storeName, key)
	}

	return val, nil
}

func (kv *ConfigMapKVStore) SetValue(ctx context.Context, storeName, key, value string) error {
	// an update can race with another writer of the same config map, so retry on the new version
	return retry.RetryOnConflict(retry.DefaultRetry, func() error {
		cm, err := kv.clientset.CoreV1().ConfigMaps(kv.namespace).Get(ctx, storeName, metav1.GetOptions{})
		if err != nil {
			if !errors.IsNotFound(err) {
				return err
			}

			// the given config map doesn't exist yet, create it now with the given key/val
			cm = &v1.ConfigMap{
				ObjectMeta: metav1.ObjectMeta{
					Name:      storeName,
					Namespace: kv.namespace,
					Labels:    kv.labels,
				},
				Data: map[string]string{key: value},
			}
			logger.Debugf("creating config map %q in namespace %q", storeName, kv.namespace)
			_, err = kv.clientset.CoreV1().ConfigMaps(kv.namespace).Create(ctx, cm, metav1.CreateOptions{})
			return err
		}

		// config map already exists, so update it with the given key/val
		if cm.Data == nil {
			cm.Data = map[string]string{}
		}
		cm.Data[key] = value
		_, err = kv.clientset.CoreV1().ConfigMaps(kv.namespace).Update(ctx, cm, metav1.UpdateOptions{})
		return err
	})
}

func (kv *ConfigMapKVStore) GetStore(ctx context.Context, storeName string) (map[string]string, error) {
	cm, err := kv.clientset.CoreV1().ConfigMaps(kv.namespace).Get(ctx, storeName, metav1.GetOptions{})
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, kvstore.NewNotExistError(storeName, "")
		}
		return nil, err
	}

	return cm.Data, nil
}

func (kv *ConfigMapKVStore) ClearStore(ctx context.Context, storeName string) error {
	err := kv.clientset.CoreV1().ConfigMaps(kv.namespace).Delete(ctx, storeName, metav1.DeleteOptions{})
	if err != nil && !errors.IsNotFound(err) {
		// a real error, return it (we're OK with clearing a store that doesn't exist)
		return err
	}

	return nil
}
