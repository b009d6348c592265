package models

import "sort"

// Roles is a set of opaque role names.
type Roles map[string]struct{}

func NewRoles(names ...string) Roles {
	r := make(Roles, len(names))
	for _, n := range names {
		if n != "" {
			r[n] = struct{}{}
		}
	}
	return r
}

func (r Roles) Has(name string) bool {
	_, ok := r[name]
	return ok
}

// Slice returns the role names sorted, which keeps storage and token claims
// deterministic.
func (r Roles) Slice() []string {
	out := make([]string, 0, len(r))
	for n := range r {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (r Roles) Clone() Roles {
	return NewRoles(r.Slice()...)
}
