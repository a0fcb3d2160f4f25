// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/roomcast/internal/metrics"
)

// Handle is anything a group can deliver to. Sessions are the production
// handle; tests use recording fakes.
type Handle interface {
	ID() string
	Deliver(ctx context.Context, env Envelope) error
}

// GroupInfo is a point-in-time view of one group.
type GroupInfo struct {
	Key     string `json:"group"`
	Members int    `json:"members"`
}

// Registry maps group keys to their member handles.
//
// Invariants, all held under a single lock:
//   - a handle belongs to at most one group
//   - a group with no members does not exist
//   - MembersOf returns a copy, so callers iterate without the lock
type Registry struct {
	mu     sync.RWMutex
	groups map[string]map[string]Handle
	index  map[string]string // handle ID -> group key
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		groups: make(map[string]map[string]Handle),
		index:  make(map[string]string),
	}
}

// Join adds h to groupKey. Joining the same group twice is a no-op;
// joining a different group moves the handle.
func (r *Registry) Join(groupKey string, h Handle) {
	id := h.ID()

	r.mu.Lock()
	if prev, ok := r.index[id]; ok {
		if prev == groupKey {
			r.mu.Unlock()
			return
		}
		r.removeLocked(prev, id)
	}
	members, ok := r.groups[groupKey]
	if !ok {
		members = make(map[string]Handle)
		r.groups[groupKey] = members
	}
	members[id] = h
	r.index[id] = groupKey
	groups, total := len(r.groups), len(r.index)
	r.mu.Unlock()

	metrics.SetRegistrySize(groups, total)
}

// Leave removes h from groupKey. Absent handles and unknown groups are
// ignored.
func (r *Registry) Leave(groupKey string, h Handle) {
	id := h.ID()

	r.mu.Lock()
	if _, ok := r.groups[groupKey][id]; !ok {
		r.mu.Unlock()
		return
	}
	r.removeLocked(groupKey, id)
	groups, total := len(r.groups), len(r.index)
	r.mu.Unlock()

	metrics.SetRegistrySize(groups, total)
}

func (r *Registry) removeLocked(groupKey, id string) {
	members := r.groups[groupKey]
	delete(members, id)
	if len(members) == 0 {
		delete(r.groups, groupKey)
	}
	if r.index[id] == groupKey {
		delete(r.index, id)
	}
}

// MembersOf returns the members of groupKey ordered by handle ID.
func (r *Registry) MembersOf(groupKey string) []Handle {
	r.mu.RLock()
	members := r.groups[groupKey]
	out := make([]Handle, 0, len(members))
	for _, h := range members {
		out = append(out, h)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Count returns the number of members in groupKey.
func (r *Registry) Count(groupKey string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[groupKey])
}

// GroupOf returns the group a handle ID belongs to.
func (r *Registry) GroupOf(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.index[id]
	return key, ok
}

// Groups lists non-empty groups ordered by key.
func (r *Registry) Groups() []GroupInfo {
	r.mu.RLock()
	out := make([]GroupInfo, 0, len(r.groups))
	for key, members := range r.groups {
		out = append(out, GroupInfo{Key: key, Members: len(members)})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the total number of joined handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.index)
}
