// Notify Relay Gateway
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package memory implements store.Store with mutex-guarded maps, for tests
// and local development.
package memory

import (
	"context"
	"sync"

	"github.com/notifyrelay/gateway/pkg/store"
)

// Store is an in-memory store.Store. Each collection is its own map; a
// single RWMutex guards all of them.
type Store struct {
	mu sync.RWMutex

	projects      map[string]*store.Project                // keyed by subscribe topic
	subscriptions map[string]map[string]*store.ClientData   // projectID -> account -> data
	lookups       map[string]*store.LookupEntry             // keyed by notify topic
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		projects:      make(map[string]*store.Project),
		subscriptions: make(map[string]map[string]*store.ClientData),
		lookups:       make(map[string]*store.LookupEntry),
	}
}

// PutProject seeds a project, used by provisioning flows and tests.
func (s *Store) PutProject(p *store.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.projects[p.SubscribeTopic] = &cp
}

func (s *Store) GetProjectBySubscribeTopic(ctx context.Context, topic string) (*store.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[topic]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// GetProjectByID scans the project collection for a matching project id.
// The in-memory store is keyed by subscribe-topic, so this is O(n); the
// Postgres store indexes project_id directly.
func (s *Store) GetProjectByID(ctx context.Context, projectID string) (*store.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.projects {
		if p.ProjectID == projectID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetSubscription(ctx context.Context, projectID, account string) (*store.ClientData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byAccount, ok := s.subscriptions[projectID]
	if !ok {
		return nil, store.ErrNotFound
	}
	c, ok := byAccount[account]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	cp.Scope = append([]string(nil), c.Scope...)
	return &cp, nil
}

func (s *Store) UpsertSubscription(ctx context.Context, projectID string, client *store.ClientData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byAccount, ok := s.subscriptions[projectID]
	if !ok {
		byAccount = make(map[string]*store.ClientData)
		s.subscriptions[projectID] = byAccount
	}
	cp := *client
	cp.Scope = append([]string(nil), client.Scope...)
	byAccount[client.ID] = &cp
	return nil
}

func (s *Store) GetLookup(ctx context.Context, notifyTopic string) (*store.LookupEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lookups[notifyTopic]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *Store) UpsertLookup(ctx context.Context, entry *store.LookupEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.lookups[entry.NotifyTopic] = &cp
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// Ping always succeeds for the in-memory store.
func (s *Store) Ping(ctx context.Context) error { return nil }

var _ store.Store = (*Store)(nil)
