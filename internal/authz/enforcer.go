// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

// Package authz decides which rooms an authenticated subject may join or
// publish into, using a Casbin RBAC model.
//
// Objects are "/rooms/<room_name>" (or "/rooms" for listing) and actions are
// join, publish and list. The embedded policy lets every "user" join any
// room, lets "service" accounts publish server-side messages, and grants
// "admin" everything. Deployments can replace it with POLICY_PATH.
package authz

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/tomtom215/roomcast/internal/auth"
	"github.com/tomtom215/roomcast/internal/metrics"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Actions checked against the policy.
const (
	ActionJoin    = "join"
	ActionPublish = "publish"
	ActionList    = "list"
)

// EnforcerConfig holds configuration for the Casbin enforcer.
type EnforcerConfig struct {
	// ModelPath overrides the embedded model when the file exists.
	ModelPath string
	// PolicyPath overrides the embedded policy when the file exists.
	PolicyPath string
	// DefaultRole is assumed for subjects that carry no roles.
	DefaultRole string
}

// Enforcer wraps a SyncedEnforcer; safe for concurrent use.
type Enforcer struct {
	enforcer    *casbin.SyncedEnforcer
	defaultRole string
}

// NewEnforcer loads the model and policy.
func NewEnforcer(cfg *EnforcerConfig) (*Enforcer, error) {
	if cfg == nil {
		cfg = &EnforcerConfig{}
	}

	var (
		m   model.Model
		err error
	)
	if cfg.ModelPath != "" && fileExists(cfg.ModelPath) {
		m, err = model.NewModelFromFile(cfg.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if cfg.PolicyPath != "" && fileExists(cfg.PolicyPath) {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadPolicyText(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	defaultRole := cfg.DefaultRole
	if defaultRole == "" {
		defaultRole = "user"
	}
	return &Enforcer{enforcer: enforcer, defaultRole: defaultRole}, nil
}

// loadPolicyText adds "p" and "g" lines from CSV text.
func loadPolicyText(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) >= 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) >= 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		}
	}
	return nil
}

// Enforce checks a single (subject, object, action) triple.
func (e *Enforcer) Enforce(subject, object, action string) (bool, error) {
	allowed, err := e.enforcer.Enforce(subject, object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return allowed, nil
}

// Authorize allows the action when the subject ID or any of its roles (the
// default role when it has none) is permitted.
func (e *Enforcer) Authorize(subject *auth.AuthSubject, object, action string) (bool, error) {
	if subject == nil {
		return false, nil
	}

	allowed, err := e.Enforce(subject.ID, object, action)
	if err != nil || allowed {
		return allowed, err
	}

	roles := subject.Roles
	if len(roles) == 0 {
		roles = []string{e.defaultRole}
	}
	for _, role := range roles {
		allowed, err := e.Enforce(role, object, action)
		if err != nil {
			return false, err
		}
		if allowed {
			return true, nil
		}
	}
	return false, nil
}

// CanJoin reports whether subject may open a connection into room.
func (e *Enforcer) CanJoin(subject *auth.AuthSubject, room string) (bool, error) {
	return e.decide(subject, RoomObject(room), ActionJoin)
}

// CanPublish reports whether subject may broadcast into room over HTTP.
func (e *Enforcer) CanPublish(subject *auth.AuthSubject, room string) (bool, error) {
	return e.decide(subject, RoomObject(room), ActionPublish)
}

// CanList reports whether subject may list active rooms.
func (e *Enforcer) CanList(subject *auth.AuthSubject) (bool, error) {
	return e.decide(subject, "/rooms", ActionList)
}

func (e *Enforcer) decide(subject *auth.AuthSubject, object, action string) (bool, error) {
	allowed, err := e.Authorize(subject, object, action)
	switch {
	case err != nil:
		metrics.RecordAuthzDecision(action, "error")
	case allowed:
		metrics.RecordAuthzDecision(action, "allow")
	default:
		metrics.RecordAuthzDecision(action, "deny")
	}
	return allowed, err
}

// RoomObject is the policy object for a room.
func RoomObject(room string) string {
	return "/rooms/" + room
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
