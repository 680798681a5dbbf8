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

// Package model holds the request bodies of the poolset REST API.
package model

// CreatePoolSetRequest creates a poolset for an application
type CreatePoolSetRequest struct {
	Application string `json:"application"`
	Name        string `json:"name"`
	// Size is a percentage of the crush root ("50%") or a byte count ("100GB")
	Size string `json:"size"`
}

// SetPoolSetRequest sets a property of a poolset
type SetPoolSetRequest struct {
	Value string `json:"value"`
}
