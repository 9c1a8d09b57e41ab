package identity

import (
	"fmt"
	"sort"
	"strings"
)

// Permission is a single ledger capability granted to an actor
type Permission string

const (
	PermissionInventoryRead     Permission = "inventory:read"
	PermissionInventoryReceive  Permission = "inventory:receive"
	PermissionInventoryAdjust   Permission = "inventory:adjust"
	PermissionInventorySell     Permission = "inventory:sell"
	PermissionInventoryTransfer Permission = "inventory:transfer"
	PermissionAuditRead         Permission = "audit:read"
)

var knownPermissions = map[Permission]struct{}{
	PermissionInventoryRead:     {},
	PermissionInventoryReceive:  {},
	PermissionInventoryAdjust:   {},
	PermissionInventorySell:     {},
	PermissionInventoryTransfer: {},
	PermissionAuditRead:         {},
}

// IsValid returns true if p is a known permission
func (p Permission) IsValid() bool {
	_, ok := knownPermissions[p]
	return ok
}

// PermissionSet is an immutable set of permissions resolved once per request
type PermissionSet struct {
	perms map[Permission]struct{}
}

// NewPermissionSet builds a set from typed permissions
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := PermissionSet{perms: make(map[Permission]struct{}, len(perms))}
	for _, p := range perms {
		set.perms[p] = struct{}{}
	}
	return set
}

// ParsePermissionSet builds a set from token claims, rejecting unknown codes
func ParsePermissionSet(codes []string) (PermissionSet, error) {
	perms := make([]Permission, 0, len(codes))
	for _, code := range codes {
		p := Permission(strings.TrimSpace(code))
		if !p.IsValid() {
			return PermissionSet{}, fmt.Errorf("unknown permission %q", code)
		}
		perms = append(perms, p)
	}
	return NewPermissionSet(perms...), nil
}

// Has returns true if the set contains p
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s.perms[p]
	return ok
}

// HasAll returns true if the set contains every permission in perms
func (s PermissionSet) HasAll(perms ...Permission) bool {
	for _, p := range perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Len returns the number of permissions in the set
func (s PermissionSet) Len() int {
	return len(s.perms)
}

// Strings returns the permissions in sorted order
func (s PermissionSet) Strings() []string {
	out := make([]string, 0, len(s.perms))
	for p := range s.perms {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}
