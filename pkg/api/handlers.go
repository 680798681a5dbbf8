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

// Package api serves the poolset commands over http while the control loop is running.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coreos/pkg/capnslog"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rook/poolsets/pkg/model"
	"github.com/rook/poolsets/pkg/operator/ceph/poolset"
)

var logger = capnslog.NewPackageLogger("github.com/rook/poolsets", "api")

// ControlLoop takes the commands and the cluster change notifications for the running control loop
type ControlLoop interface {
	Submit(ctx context.Context, cmd poolset.Command) (*poolset.Result, error)
	Notify(ev poolset.EventType)
}

type Handler struct {
	controller ControlLoop
}

func NewHandler(controller ControlLoop) *Handler {
	return &Handler{controller: controller}
}

// FormatJsonResponse writes the object as a json response
func FormatJsonResponse(w http.ResponseWriter, object interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	output, err := json.Marshal(object)
	if err != nil {
		logger.Errorf("failed to marshal object '%+v'. %v", object, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Write(output)
}

// errorStatus maps a command error to the http status returned to the client
func errorStatus(err error) int {
	switch {
	case poolset.IsNotFound(err):
		return http.StatusNotFound
	case poolset.IsAlreadyExists(err):
		return http.StatusConflict
	case poolset.IsConfigError(err):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, cmd poolset.Command) {
	result, err := h.controller.Submit(r.Context(), cmd)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			logger.Errorf("failed to handle %s %s. %v", r.Method, r.URL.Path, err)
		}
		w.WriteHeader(status)
		w.Write([]byte(err.Error()))
		return
	}
	FormatJsonResponse(w, result)
}

func decodeBody(w http.ResponseWriter, r *http.Request, into interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		logger.Errorf("failed to decode %s %s request body. %v", r.Method, r.URL.Path, err)
		w.WriteHeader(http.StatusBadRequest)
		return false
	}
	return true
}

// Lists the poolsets.
// GET
// /poolset
func (h *Handler) ListPoolSets(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, poolset.NewListCommand())
}

// Creates a poolset and its pools.
// POST
// /poolset
func (h *Handler) CreatePoolSet(w http.ResponseWriter, r *http.Request) {
	var req model.CreatePoolSetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.submit(w, r, poolset.NewCreateCommand(req.Application, req.Name, req.Size))
}

// Sets a property of a poolset.
// PUT
// /poolset/{name}/{key}
func (h *Handler) SetPoolSet(w http.ResponseWriter, r *http.Request) {
	var req model.SetPoolSetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	vars := mux.Vars(r)
	h.submit(w, r, &poolset.SetCommand{PoolSet: vars["name"], Key: vars["key"], Value: req.Value})
}

// Deletes a poolset and its pools.
// DELETE
// /poolset/{name}
func (h *Handler) DeletePoolSet(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, poolset.NewDeleteCommand(mux.Vars(r)["name"]))
}

// Gets the resource status of the subtrees holding poolset pools and the pending adjustments.
// GET
// /status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, poolset.NewStatusCommand())
}

// Tells the control loop that part of the cluster changed.
// POST
// /notify/{event}
func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	ev, err := poolset.ParseEventType(mux.Vars(r)["event"])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(err.Error()))
		return
	}
	h.controller.Notify(ev)
	FormatJsonResponse(w, &poolset.Result{})
}
