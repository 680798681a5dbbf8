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

// Package client sends poolset commands to a running control loop over http.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/rook/poolsets/pkg/model"
	"github.com/rook/poolsets/pkg/operator/ceph/poolset"
)

const (
	poolSetQueryName = "poolset"
	statusQueryName  = "status"
	notifyQueryName  = "notify"
)

type PoolSetRestClient struct {
	RestURL    string
	HttpClient *http.Client
}

func NewPoolSetRestClient(url string, httpClient *http.Client) *PoolSetRestClient {
	return &PoolSetRestClient{
		RestURL:    url,
		HttpClient: httpClient,
	}
}

// GetRestURL returns the url of the api served at the endpoint, for example "localhost:8124"
func GetRestURL(endPoint string) string {
	return fmt.Sprintf("http://%s", endPoint)
}

type RestError struct {
	Query  string
	Status int
	Body   []byte
}

func (e RestError) Error() string {
	return fmt.Sprintf("HTTP status code %d for query %s: '%s'", e.Status, e.Query, string(e.Body))
}

// IsNotFound returns true if the server did not find the poolset named by the query
func IsNotFound(err error) bool {
	var restErr RestError
	return errors.As(err, &restErr) && restErr.Status == http.StatusNotFound
}

func (c *PoolSetRestClient) URL() string {
	return c.RestURL
}

// Exec sends the command to the server and waits for its result
func (c *PoolSetRestClient) Exec(ctx context.Context, cmd poolset.Command) (*poolset.Result, error) {
	switch cmd := cmd.(type) {
	case *poolset.CreateCommand:
		return c.CreatePoolSet(ctx, model.CreatePoolSetRequest{Application: cmd.Application, Name: cmd.PoolSet, Size: cmd.Size})
	case *poolset.ListCommand:
		return c.command(ctx, "GET", poolSetQueryName, nil)
	case *poolset.SetCommand:
		return c.SetPoolSet(ctx, cmd.PoolSet, cmd.Key, cmd.Value)
	case *poolset.DeleteCommand:
		return c.command(ctx, "DELETE", poolSetQuery(cmd.PoolSet), nil)
	case *poolset.StatusCommand:
		return c.command(ctx, "GET", statusQueryName, nil)
	default:
		return nil, errors.Errorf("unsupported command %T", cmd)
	}
}

func (c *PoolSetRestClient) CreatePoolSet(ctx context.Context, req model.CreatePoolSetRequest) (*poolset.Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return c.command(ctx, "POST", poolSetQueryName, body)
}

func (c *PoolSetRestClient) SetPoolSet(ctx context.Context, name, key, value string) (*poolset.Result, error) {
	body, err := json.Marshal(model.SetPoolSetRequest{Value: value})
	if err != nil {
		return nil, err
	}
	return c.command(ctx, "PUT", poolSetQuery(name, key), body)
}

// Notify tells the control loop behind the server that part of the cluster changed
func (c *PoolSetRestClient) Notify(ctx context.Context, ev poolset.EventType) error {
	_, err := c.Do(ctx, "POST", fmt.Sprintf("%s/%s", notifyQueryName, url.PathEscape(string(ev))), nil)
	return err
}

func poolSetQuery(parts ...string) string {
	query := poolSetQueryName
	for _, p := range parts {
		query += "/" + url.PathEscape(p)
	}
	return query
}

func (c *PoolSetRestClient) command(ctx context.Context, method, query string, body []byte) (*poolset.Result, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	resp, err := c.Do(ctx, method, query, reader)
	if err != nil {
		return nil, err
	}

	var result poolset.Result
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, errors.Wrapf(err, "failed to parse response of query %s", query)
	}
	return &result, nil
}

func (c *PoolSetRestClient) Do(ctx context.Context, method, query string, body io.Reader) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s/%s", c.RestURL, query), body)
	if err != nil {
		return nil, err
	}

	request.Header.Add("Accept", "application/json; charset=UTF-8")
	if body != nil {
		request.Header.Add("Content-type", "application/json")
	}

	response, err := c.HttpClient.Do(request)
	if err != nil {
		return nil, err
	}

	defer response.Body.Close()
	respBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		// non 200 OK response, return an error with the details
		return nil, RestError{
			Query:  query,
			Status: response.StatusCode,
			Body:   respBody,
		}
	}

	return respBody, nil
}
