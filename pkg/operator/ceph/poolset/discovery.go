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

// onOSDMap reconciles the registry with the pools of the osd map. Pools that are gone are
// removed from their poolset, and pools outside any poolset get one of their own, except for
// filesystem and object store pools.
func (c *Controller) onOSDMap() {
	if c.state == nil {
		return
	}
	osdMap := c.state.OSDMap

	for _, ps := range c.registry.List() {
		removed := false
		for _, id := range ps.PoolIDs() {
			if _, ok := osdMap.PoolByID(id); !ok {
				logger.Infof("pool %d gone from osd map, removing it from poolset %q", id, ps.Name)
				delete(ps.PoolProperties, id)
				c.registry.MarkDirty()
				removed = true
			}
		}
		if removed && len(ps.PoolProperties) == 0 && !ps.Creating() {
			logger.Infof("removing empty poolset %q", ps.Name)
			c.registry.Remove(ps.Name)
		}
	}

	pending := c.registry.pendingPoolNames()
	for i := range osdMap.Pools {
		pool := &osdMap.Pools[i]
		if _, ok := c.registry.FindByPool(pool.ID); ok {
			continue
		}
		// filesystem pools are grouped from the fs map, rgw pools are left alone
		if pool.HasApplication(ApplicationCephFS) || pool.HasApplication(ApplicationRGW) {
			continue
		}
		if pending[pool.Name] {
			logger.Debugf("pool %q is being created by a poolset", pool.Name)
			continue
		}
		if _, ok := c.registry.Get(pool.Name); ok {
			logger.Warningf("not creating a poolset for pool %q, a poolset with that name already exists", pool.Name)
			continue
		}

		// an inherited pool, so no invasive pg_num changes by default
		ps := NewPoolSet(pool.Name, PolicyWarn)
		ps.PoolProperties[pool.ID] = &PoolProperties{}
		for app := range pool.ApplicationMetadata {
			ps.Application[app] = map[string]string{}
		}
		c.registry.Add(ps)
		logger.Infof("auto-created poolset %q", ps.Name)
	}
}

// onFSMap gives each filesystem a poolset with its metadata pool and its first data pool.
// Additional data pools usually have a configuration of their own and are not grouped.
func (c *Controller) onFSMap() {
	filesystems, err := c.cluster.Filesystems()
	if err != nil {
		logger.Errorf("failed to list filesystems. %v", err)
		return
	}

	for _, fs := range filesystems {
		ps, ok := c.registry.FindByPool(fs.MetadataPoolID)
		if !ok {
			if _, exists := c.registry.Get(fs.Name); exists {
				logger.Warningf("poolset %q exists but does not hold the metadata pool of filesystem %q", fs.Name, fs.Name)
				continue
			}
			ps = NewPoolSet(fs.Name, PolicyWarn)
			ps.Application[ApplicationCephFS] = map[string]string{}
			ps.PoolProperties[fs.MetadataPoolID] = &PoolProperties{}
			c.registry.Add(ps)
			logger.Infof("auto-created poolset for filesystem %q", fs.Name)
		}

		if len(fs.DataPoolIDs) == 0 {
			continue
		}
		dataPoolID := fs.DataPoolIDs[0]
		if _, ok := ps.PoolProperties[dataPoolID]; ok {
			continue
		}

		existing, ok := c.registry.FindByPool(dataPoolID)
		if !ok {
			ps.PoolProperties[dataPoolID] = &PoolProperties{}
			c.registry.MarkDirty()
			continue
		}
		if len(existing.PoolProperties) != 1 || existing.Creating() {
			logger.Debugf("data pool %d of filesystem %q is already in poolset %q", dataPoolID, fs.Name, existing.Name)
			continue
		}
		ps.PoolProperties[dataPoolID] = existing.PoolProperties[dataPoolID]
		c.registry.Remove(existing.Name)
		c.registry.MarkDirty()
		logger.Infof("merged poolset %q into the poolset of filesystem %q", existing.Name, fs.Name)
	}
}
