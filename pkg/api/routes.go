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

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsPath is where the prometheus metrics are served
const MetricsPath = "/metrics"

type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

func (h *Handler) GetRoutes() []Route {
	return []Route{
		{
			"ListPoolSets",
			"GET",
			"/poolset",
			h.ListPoolSets,
		},
		{
			"CreatePoolSet",
			"POST",
			"/poolset",
			h.CreatePoolSet,
		},
		{
			"SetPoolSet",
			"PUT",
			"/poolset/{name}/{key}",
			h.SetPoolSet,
		},
		{
			"DeletePoolSet",
			"DELETE",
			"/poolset/{name}",
			h.DeletePoolSet,
		},
		{
			"GetStatus",
			"GET",
			"/status",
			h.GetStatus,
		},
		{
			"Notify",
			"POST",
			"/notify/{event}",
			h.Notify,
		},
	}
}

// NewRouter routes the poolset commands and, if a gatherer is given, the metrics it gathers
func NewRouter(routes []Route, gatherer prometheus.Gatherer) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	for _, route := range routes {
		router.
			Methods(route.Method).
			Path(route.Pattern).
			Name(route.Name).
			Handler(logged(route.HandlerFunc, route.Name))
	}
	if gatherer != nil {
		router.Methods("GET").Path(MetricsPath).Name("Metrics").Handler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return router
}

func logged(inner http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		inner.ServeHTTP(w, r)
		logger.Debugf("%s %s %s %s", r.Method, r.RequestURI, name, time.Since(start))
	})
}
