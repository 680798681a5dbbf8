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
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rook/poolsets/pkg/operator/ceph/progress"
	"github.com/rook/poolsets/pkg/util/kvstore"
)

// EventType is a notification that part of the cluster state changed
type EventType string

const (
	// EventOSDMap is a new osd map
	EventOSDMap EventType = "osd_map"
	// EventFSMap is a new filesystem map
	EventFSMap EventType = "fs_map"
	// EventPGSummary is a new summary of pg states
	EventPGSummary EventType = "pg_summary"
)

const eventQueueSize = 16

// ParseEventType returns the notification with the given name
func ParseEventType(name string) (EventType, error) {
	switch ev := EventType(name); ev {
	case EventOSDMap, EventFSMap, EventPGSummary:
		return ev, nil
	}
	return "", newConfigErrorf(ErrInvalid, "unknown notification %q", name)
}

type request struct {
	cmd   Command
	reply chan response
}

type response struct {
	result *Result
	err    error
}

// Controller owns the poolset registry and the in flight adjustments. All of its state is
// changed from a single goroutine: Run, or the caller of Start and Exec when Run is not used.
type Controller struct {
	cluster  Cluster
	store    kvstore.KeyValueStore
	progress progress.Reporter
	config   Config

	targetPGsPerOSD int
	maxPGsPerOSD    int

	registry    *Registry
	state       *ClusterState
	lastEpoch   int
	adjustments []*AdjustmentInProgress
	intents     []*AdjustmentIntent
	health      *HealthCheck
	started     bool
	// sharedBudgets are the budgets of overlapping subtrees last reported
	sharedBudgets map[string]bool

	events   chan EventType
	requests chan *request

	mu       sync.RWMutex
	snapshot *Snapshot
}

// NewController returns a controller. Start or Run must be called before it handles commands.
func NewController(cluster Cluster, store kvstore.KeyValueStore, reporter progress.Reporter, config Config) *Controller {
	return &Controller{
		cluster:  cluster,
		store:    store,
		progress: reporter,
		config:   config,
		registry: NewRegistry(),
		events:   make(chan EventType, eventQueueSize),
		requests: make(chan *request),
	}
}

// Start loads the registry and the first snapshot of the cluster, reconciles the registry with
// the pools and filesystems found, and resumes interrupted poolset creations
func (c *Controller) Start(ctx context.Context) error {
	if err := c.config.Validate(); err != nil {
		return errors.Wrap(err, "invalid poolset configuration")
	}

	registry, err := LoadRegistry(ctx, c.store, c.config.StoreName)
	if err != nil {
		return err
	}
	c.registry = registry

	if err := c.loadPGLimits(); err != nil {
		return err
	}
	logger.Infof("target pgs per osd %d, max pgs per osd %d", c.targetPGsPerOSD, c.maxPGsPerOSD)

	if err := c.refresh(); err != nil {
		return err
	}
	c.onFSMap()
	c.onOSDMap()
	c.lastEpoch = c.state.OSDMap.Epoch
	c.recoverCreations(ctx)
	c.started = true

	c.save(ctx)
	c.updateSnapshot()
	return nil
}

func (c *Controller) loadPGLimits() error {
	c.targetPGsPerOSD = c.config.TargetPGsPerOSD
	if c.targetPGsPerOSD == 0 {
		v, err := c.cluster.MonConfigInt(TargetPGsPerOSDKey)
		if err != nil {
			return errors.Wrapf(err, "failed to read %q", TargetPGsPerOSDKey)
		}
		c.targetPGsPerOSD = v
	}
	c.maxPGsPerOSD = c.config.MaxPGsPerOSD
	if c.maxPGsPerOSD == 0 {
		v, err := c.cluster.MonConfigInt(MaxPGsPerOSDKey)
		if err != nil {
			return errors.Wrapf(err, "failed to read %q", MaxPGsPerOSDKey)
		}
		c.maxPGsPerOSD = v
	}
	if c.targetPGsPerOSD <= 0 {
		return errors.Errorf("target pgs per osd must be positive, got %d", c.targetPGsPerOSD)
	}
	if c.maxPGsPerOSD < c.targetPGsPerOSD {
		return errors.Errorf("max pgs per osd %d is below target pgs per osd %d", c.maxPGsPerOSD, c.targetPGsPerOSD)
	}
	return nil
}

// Run starts the controller if needed and then runs the control loop until the context is
// cancelled
func (c *Controller) Run(ctx context.Context) error {
	if !c.started {
		if err := c.Start(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()
	logger.Infof("poolset control loop started with interval %v", c.config.Interval)

	for {
		select {
		case <-ctx.Done():
			logger.Infof("stopping poolset control loop")
			// the run context is gone, the final save still gets a chance
			c.save(context.Background())
			return nil

		case <-ticker.C:
			c.tick(ctx)

		case ev := <-c.events:
			c.handleEvent(ctx, ev)

		case req := <-c.requests:
			result, err := c.Exec(ctx, req.cmd)
			req.reply <- response{result: result, err: err}
		}
	}
}

// Notify queues a cluster change notification for the control loop, so a host watching the
// cluster (the notify api, or a process embedding the controller) does not wait for the next
// interval. Notifications are dropped when the queue is full, the next interval picks up the
// change.
func (c *Controller) Notify(ev EventType) {
	select {
	case c.events <- ev:
	default:
		logger.Debugf("event queue full, dropping %q notification", ev)
	}
}

// Submit hands a command to the control loop and waits for its result
func (c *Controller) Submit(ctx context.Context, cmd Command) (*Result, error) {
	req := &request{cmd: cmd, reply: make(chan response, 1)}
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-req.reply:
		return resp.result, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Exec runs a command on the calling goroutine. It must not be called while Run is active, use
// Submit instead.
func (c *Controller) Exec(ctx context.Context, cmd Command) (*Result, error) {
	if !c.started {
		return nil, errors.New("poolset controller is not started")
	}
	logger.Debugf("handling command %q", cmd.commandName())

	var result *Result
	var err error
	switch cmd := cmd.(type) {
	case *CreateCommand:
		result, err = c.createPoolSet(ctx, cmd)
	case *ListCommand:
		result = c.listPoolSets()
	case *SetCommand:
		result, err = c.setPoolSet(cmd)
	case *DeleteCommand:
		result, err = c.deletePoolSet(ctx, cmd)
	case *StatusCommand:
		result, err = c.status()
	default:
		err = newConfigErrorf(ErrInvalid, "unknown command %T", cmd)
	}

	c.save(ctx)
	c.updateSnapshot()
	return result, err
}

// tick is the periodic cycle: catch up with the cluster, advance the adjustments and look for
// new ones
func (c *Controller) tick(ctx context.Context) {
	if err := c.refresh(); err != nil {
		logger.Errorf("failed to refresh cluster state. %v", err)
		return
	}
	if c.state.OSDMap.Epoch != c.lastEpoch {
		c.onOSDMap()
		c.lastEpoch = c.state.OSDMap.Epoch
	}
	c.onFSMap()
	c.advanceAll()
	c.maybeAdjust()

	c.save(ctx)
	c.updateSnapshot()
}

func (c *Controller) handleEvent(ctx context.Context, ev EventType) {
	logger.Debugf("handling %q notification", ev)
	switch ev {
	case EventOSDMap, EventPGSummary:
		if err := c.refresh(); err != nil {
			logger.Errorf("failed to refresh cluster state. %v", err)
			return
		}
		if ev == EventOSDMap {
			c.onOSDMap()
			c.lastEpoch = c.state.OSDMap.Epoch
		}
		c.advanceAll()
	case EventFSMap:
		c.onFSMap()
	default:
		logger.Warningf("ignoring unknown notification %q", ev)
		return
	}

	c.save(ctx)
	c.updateSnapshot()
}

func (c *Controller) refresh() error {
	state, err := LoadClusterState(c.cluster)
	if err != nil {
		return err
	}
	c.state = state
	return nil
}

func (c *Controller) save(ctx context.Context) {
	if err := c.registry.Save(ctx, c.store, c.config.StoreName); err != nil {
		logger.Errorf("failed to save poolsets. %v", err)
	}
}

// Snapshot is a copy of the controller state, safe to read from any goroutine
type Snapshot struct {
	PoolSets []*PoolSet
	Status   *StatusReport
}

// Snapshot returns the state as of the end of the last cycle or command
func (c *Controller) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

func (c *Controller) updateSnapshot() {
	if c.state == nil {
		return
	}
	s := &Snapshot{Status: c.buildStatus(c.intents)}
	c.reportSharedBudgets(s.Status.Subtrees)
	for _, ps := range c.registry.List() {
		s.PoolSets = append(s.PoolSets, ps.DeepCopy())
	}
	c.mu.Lock()
	c.snapshot = s
	c.mu.Unlock()
}
