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

// Package progress tracks long running operations and their completion fraction.
package progress

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/coreos/pkg/capnslog"
)

var logger = capnslog.NewPackageLogger("github.com/rook/poolsets", "op-progress")

const (
	eventTypeNormal  = "Normal"
	eventTypeWarning = "Warning"

	// ReasonStarted is the event reason of a new progress item
	ReasonStarted = "ProgressStarted"
	// ReasonCompleted is the event reason of a finished progress item
	ReasonCompleted = "ProgressCompleted"
	// ReasonFailed is the event reason of an abandoned progress item
	ReasonFailed = "ProgressFailed"
)

// Reporter receives the progress of long running operations
type Reporter interface {
	// Update registers the item on first use and sets its message and fraction in [0,1]
	Update(id, message string, fraction float64)
	// Complete retires a finished item
	Complete(id string)
	// Fail retires an item that will not finish
	Fail(id, reason string)
}

// Recorder publishes progress transitions, for example as kubernetes events
type Recorder interface {
	Event(eventType, reason, message string)
}

// Event is the state of one progress item
type Event struct {
	ID       string    `json:"id"`
	Message  string    `json:"message"`
	Progress float64   `json:"progress"`
	Started  time.Time `json:"started"`
	Updated  time.Time `json:"updated"`
}

// Tracker keeps the active progress items in memory. It is safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	events   map[string]*Event
	recorder Recorder
	now      func() time.Time
}

// NewTracker returns a tracker. The recorder may be nil.
func NewTracker(recorder Recorder) *Tracker {
	return &Tracker{
		events:   map[string]*Event{},
		recorder: recorder,
		now:      time.Now,
	}
}

func (t *Tracker) Update(id, message string, fraction float64) {
	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	ev, ok := t.events[id]
	if !ok {
		ev = &Event{ID: id, Started: now}
		t.events[id] = ev
		logger.Infof("progress started: %s", message)
		t.record(eventTypeNormal, ReasonStarted, message)
	}
	ev.Message = message
	ev.Progress = fraction
	ev.Updated = now
}

func (t *Tracker) Complete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ev, ok := t.events[id]
	if !ok {
		return
	}
	delete(t.events, id)
	logger.Infof("progress complete: %s", ev.Message)
	t.record(eventTypeNormal, ReasonCompleted, ev.Message)
}

func (t *Tracker) Fail(id, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ev, ok := t.events[id]
	if !ok {
		return
	}
	delete(t.events, id)
	logger.Warningf("progress failed: %s. %s", ev.Message, reason)
	t.record(eventTypeWarning, ReasonFailed, fmt.Sprintf("%s: %s", ev.Message, reason))
}

// Events returns a copy of the active items, oldest first
func (t *Tracker) Events() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Event, 0, len(t.events))
	for _, ev := range t.events {
		out = append(out, *ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Started.Equal(out[j].Started) {
			return out[i].ID < out[j].ID
		}
		return out[i].Started.Before(out[j].Started)
	})
	return out
}

func (t *Tracker) record(eventType, reason, message string) {
	if t.recorder != nil {
		t.recorder.Event(eventType, reason, message)
	}
}
