package permission

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sort"
)

// RoleDef declares one role for [NewTable]. Rank orders roles totally:
// higher outranks lower, equal ranks are peers (shiftlead and mover).
// Admin marks the role that holds every permission unconditionally.
type RoleDef struct {
	Name        string
	Rank        int
	Admin       bool
	Permissions []string
}

// Table is the immutable role → permission-set mapping. Build once at
// process startup via [NewTable] and inject the handle into consumers;
// lookups are safe for concurrent use.
type Table struct {
	roles map[string]roleEntry
}

type roleEntry struct {
	rank  int
	admin bool
	perms map[string]struct{}
}

var (
	// ErrUnknownRole is returned by Rank for roles absent from the table.
	ErrUnknownRole = errors.New("unknown role")
)

// NewTable validates and freezes the role set. Role names must be unique
// and every admin role must sit at the top of the rank order.
func NewTable(defs []RoleDef) (*Table, error) {
	if len(defs) == 0 {
		return nil, errors.New("at least one role required")
	}

	roles := make(map[string]roleEntry, len(defs))
	maxRank := defs[0].Rank
	for _, d := range defs {
		if d.Rank > maxRank {
			maxRank = d.Rank
		}
	}

	for _, d := range defs {
		if d.Name == "" {
			return nil, errors.New("role name cannot be empty")
		}
		if _, dup := roles[d.Name]; dup {
			return nil, fmt.Errorf("role %q declared twice", d.Name)
		}
		if d.Admin && d.Rank != maxRank {
			return nil, fmt.Errorf("admin role %q must hold the highest rank", d.Name)
		}

		perms := make(map[string]struct{}, len(d.Permissions))
		for _, p := range d.Permissions {
			if p == "" {
				return nil, fmt.Errorf("role %q declares an empty permission", d.Name)
			}
			perms[p] = struct{}{}
		}

		roles[d.Name] = roleEntry{rank: d.Rank, admin: d.Admin, perms: perms}
	}

	return &Table{roles: roles}, nil
}

// HasPermission reports whether role holds perm. Admin roles hold every
// permission; unknown roles hold none.
func (t *Table) HasPermission(role, perm string) bool {
	entry, ok := t.roles[role]
	if !ok {
		return false
	}
	if entry.admin {
		return true
	}
	_, held := entry.perms[perm]
	return held
}

// IsAdmin reports whether role is the unconditional-grant role.
func (t *Table) IsAdmin(role string) bool {
	entry, ok := t.roles[role]
	return ok && entry.admin
}

// Known reports whether role was declared at construction.
func (t *Table) Known(role string) bool {
	_, ok := t.roles[role]
	return ok
}

// Rank returns the role's position in the total order.
func (t *Table) Rank(role string) (int, error) {
	entry, ok := t.roles[role]
	if !ok {
		return 0, ErrUnknownRole
	}
	return entry.rank, nil
}

// Outranks reports whether role a sits strictly above role b. Unknown
// roles never outrank anything.
func (t *Table) Outranks(a, b string) bool {
	ea, okA := t.roles[a]
	eb, okB := t.roles[b]
	if !okA || !okB {
		return false
	}
	return ea.rank > eb.rank
}

// Roles returns the declared role names sorted by descending rank, then name.
func (t *Table) Roles() []string {
	names := make([]string, 0, len(t.roles))
	for name := range t.roles {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := t.roles[names[i]].rank, t.roles[names[j]].rank
		if ri != rj {
			return ri > rj
		}
		return names[i] < names[j]
	})
	return names
}

// CheckOwnership is the ownership gate: plain identity equality, compared
// in constant time.
func CheckOwnership(subjectID, ownerID string) bool {
	if subjectID == "" || ownerID == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(subjectID), []byte(ownerID)) == 1
}

// CanAccessResource combines the two gates: the role must hold perm, and a
// non-admin subject must own the resource.
func (t *Table) CanAccessResource(role, perm, subjectID, ownerID string) bool {
	if !t.HasPermission(role, perm) {
		return false
	}
	if t.IsAdmin(role) {
		return true
	}
	return CheckOwnership(subjectID, ownerID)
}

// Owned is implemented by any listable resource with a recorded owner.
type Owned interface {
	ResourceOwner() string
}

// FilterByPermission applies the [Table.CanAccessResource] predicate to every
// item, returning only the rows the subject may see. Admins see everything;
// other roles see exactly their own rows. This runs server-side — filtering
// is never left to the client.
func FilterByPermission[T Owned](t *Table, items []T, role, subjectID, perm string) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if t.CanAccessResource(role, perm, subjectID, item.ResourceOwner()) {
			out = append(out, item)
		}
	}
	return out
}
