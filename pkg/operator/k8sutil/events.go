/*
Copyright 2021 The Rook Authors. All rights reserved.

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
	"fmt"
	"sync"
	"time"

	v1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	typedcorev1 "k8s.io/client-go/kubernetes/typed/core/v1"
	"k8s.io/client-go/tools/record"
)

// eventRepeatInterval is how long an identical event is suppressed
const eventRepeatInterval = 60 * time.Minute

// EventReporter records events on a single object, dropping repeats of the last event for a
// reason within an hour
type EventReporter struct {
	recorder record.EventRecorder
	object   *v1.ObjectReference

	mu sync.Mutex
	// lastReportedEvent will have a last captured event per reason
	lastReportedEvent map[string]string
	// lastReportedEventTime will be the time of lastReportedEvent
	lastReportedEventTime map[string]time.Time
	now                   func() time.Time
}

// NewEventReporter returns an EventReporter attaching events to the configmap that holds the
// poolset registry
func NewEventReporter(recorder record.EventRecorder, namespace, configMapName string) *EventReporter {
	return &EventReporter{
		recorder: recorder,
		object: &v1.ObjectReference{
			Kind:       "ConfigMap",
			APIVersion: "v1",
			Namespace:  namespace,
			Name:       configMapName,
		},
		lastReportedEvent:     make(map[string]string),
		lastReportedEventTime: make(map[string]time.Time),
		now:                   time.Now,
	}
}

// NewEventRecorder returns a recorder sending events to the kubernetes api
func NewEventRecorder(clientset kubernetes.Interface, namespace, component string) record.EventRecorder {
	broadcaster := record.NewBroadcaster()
	broadcaster.StartLogging(logger.Debugf)
	broadcaster.StartRecordingToSink(&typedcorev1.EventSinkImpl{Interface: clientset.CoreV1().Events(namespace)})
	return broadcaster.NewRecorder(scheme.Scheme, v1.EventSource{Component: component})
}

// Event reports the event unless it is the same as the last one with this reason in the last hour
func (rep *EventReporter) Event(eventType, eventReason, msg string) {
	rep.mu.Lock()
	defer rep.mu.Unlock()

	eventKey := getEventKey(eventType, eventReason, msg)
	now := rep.now()
	if rep.lastReportedEvent[eventReason] != eventKey || rep.lastReportedEventTime[eventReason].Add(eventRepeatInterval).Before(now) {
		logger.Debugf("reporting event %q on %s/%s", eventKey, rep.object.Namespace, rep.object.Name)
		rep.lastReportedEvent[eventReason] = eventKey
		rep.lastReportedEventTime[eventReason] = now
		rep.recorder.Event(rep.object, eventType, eventReason, msg)
	} else {
		logger.Debugf("not reporting event %q because it is the same as the last one", eventKey)
	}
}

func getEventKey(eventType, eventReason, msg string) string {
	return fmt.Sprintf("%s:%s:%s", eventType, eventReason, msg)
}
