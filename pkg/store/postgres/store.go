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

// Package postgres implements store.Store on top of pgx/pgxpool: one
// projects table keyed by subscribe_topic, one subscriptions table keyed
// by (project_id, account), and one lookup_entries table keyed by
// notify_topic.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyrelay/gateway/pkg/store"
)

// Config holds PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (cfg Config) connString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)
}

// Store is the PostgreSQL-backed store.Store implementation.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore opens a connection pool and verifies it with a ping.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	pool, err := pgxpool.New(ctx, cfg.connString())
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Schema is the DDL NewStore's caller is expected to have applied (via a
// migration tool); NewStore does not apply it.
const Schema = `
CREATE TABLE IF NOT EXISTS projects (
	subscribe_topic      TEXT PRIMARY KEY,
	project_id           TEXT NOT NULL UNIQUE,
	dapp_url             TEXT NOT NULL,
	identity_public_key  BYTEA NOT NULL,
	identity_private_key BYTEA NOT NULL,
	signing_public_key   BYTEA NOT NULL,
	signing_private_key  BYTEA NOT NULL
);

CREATE TABLE IF NOT EXISTS subscriptions (
	project_id     TEXT NOT NULL,
	account        TEXT NOT NULL,
	relay_url      TEXT NOT NULL,
	sym_key        TEXT NOT NULL,
	scope          TEXT[] NOT NULL,
	expiry         BIGINT NOT NULL,
	sub_auth_hash  TEXT NOT NULL,
	ksu            TEXT NOT NULL,
	PRIMARY KEY (project_id, account)
);

CREATE TABLE IF NOT EXISTS lookup_entries (
	notify_topic TEXT PRIMARY KEY,
	project_id   TEXT NOT NULL,
	account      TEXT NOT NULL
);
`

func (s *Store) GetProjectBySubscribeTopic(ctx context.Context, topic string) (*store.Project, error) {
	const q = `
		SELECT project_id, dapp_url, identity_public_key, identity_private_key,
		       signing_public_key, signing_private_key, subscribe_topic
		FROM projects WHERE subscribe_topic = $1`

	var p store.Project
	err := s.pool.QueryRow(ctx, q, topic).Scan(
		&p.ProjectID, &p.DappURL, &p.IdentityPublicKey, &p.IdentityPrivateKey,
		&p.SigningPublicKey, &p.SigningPrivateKey, &p.SubscribeTopic,
	)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

func (s *Store) GetProjectByID(ctx context.Context, projectID string) (*store.Project, error) {
	const q = `
		SELECT project_id, dapp_url, identity_public_key, identity_private_key,
		       signing_public_key, signing_private_key, subscribe_topic
		FROM projects WHERE project_id = $1`

	var p store.Project
	err := s.pool.QueryRow(ctx, q, projectID).Scan(
		&p.ProjectID, &p.DappURL, &p.IdentityPublicKey, &p.IdentityPrivateKey,
		&p.SigningPublicKey, &p.SigningPrivateKey, &p.SubscribeTopic,
	)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project by id: %w", err)
	}
	return &p, nil
}

func (s *Store) GetSubscription(ctx context.Context, projectID, account string) (*store.ClientData, error) {
	const q = `
		SELECT account, relay_url, sym_key, scope, expiry, sub_auth_hash, ksu
		FROM subscriptions WHERE project_id = $1 AND account = $2`

	var c store.ClientData
	err := s.pool.QueryRow(ctx, q, projectID, account).Scan(
		&c.ID, &c.RelayURL, &c.SymKey, &c.Scope, &c.Expiry, &c.SubAuthHash, &c.Ksu,
	)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &c, nil
}

func (s *Store) UpsertSubscription(ctx context.Context, projectID string, client *store.ClientData) error {
	const q = `
		INSERT INTO subscriptions (project_id, account, relay_url, sym_key, scope, expiry, sub_auth_hash, ksu)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (project_id, account) DO UPDATE SET
			relay_url = EXCLUDED.relay_url,
			sym_key = EXCLUDED.sym_key,
			scope = EXCLUDED.scope,
			expiry = EXCLUDED.expiry,
			sub_auth_hash = EXCLUDED.sub_auth_hash,
			ksu = EXCLUDED.ksu`

	_, err := s.pool.Exec(ctx, q, projectID, client.ID, client.RelayURL, client.SymKey,
		client.Scope, client.Expiry, client.SubAuthHash, client.Ksu)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

func (s *Store) GetLookup(ctx context.Context, notifyTopic string) (*store.LookupEntry, error) {
	const q = `SELECT notify_topic, project_id, account FROM lookup_entries WHERE notify_topic = $1`

	var l store.LookupEntry
	err := s.pool.QueryRow(ctx, q, notifyTopic).Scan(&l.NotifyTopic, &l.ProjectID, &l.Account)
	if err == pgx.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lookup: %w", err)
	}
	return &l, nil
}

func (s *Store) UpsertLookup(ctx context.Context, entry *store.LookupEntry) error {
	const q = `
		INSERT INTO lookup_entries (notify_topic, project_id, account)
		VALUES ($1, $2, $3)
		ON CONFLICT (notify_topic) DO UPDATE SET
			project_id = EXCLUDED.project_id,
			account = EXCLUDED.account`

	_, err := s.pool.Exec(ctx, q, entry.NotifyTopic, entry.ProjectID, entry.Account)
	if err != nil {
		return fmt.Errorf("upsert lookup: %w", err)
	}
	return nil
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var _ store.Store = (*Store)(nil)
