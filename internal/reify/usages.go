package reify

import "sort"

// Usages is the set of reified type parameter names that markers of a body
// still depend on. The zero value is an empty set ready for use.
type Usages struct {
	names map[string]struct{}
}

// NewUsages returns a set holding names.
func NewUsages(names ...string) *Usages {
	u := &Usages{}
	for _, n := range names {
		u.Add(n)
	}
	return u
}

func (u *Usages) Add(name string) {
	if u.names == nil {
		u.names = make(map[string]struct{})
	}
	u.names[name] = struct{}{}
}

// WereUsed reports whether the set is non-empty.
func (u *Usages) WereUsed() bool {
	return u != nil && len(u.names) > 0
}

func (u *Usages) Contains(name string) bool {
	if u == nil {
		return false
	}
	_, ok := u.names[name]
	return ok
}

func (u *Usages) Len() int {
	if u == nil {
		return 0
	}
	return len(u.names)
}

// Names returns the members in lexical order.
func (u *Usages) Names() []string {
	if u == nil || len(u.names) == 0 {
		return nil
	}
	out := make([]string, 0, len(u.names))
	for n := range u.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// MergeAll adds every member of other.
func (u *Usages) MergeAll(other *Usages) {
	if !other.WereUsed() {
		return
	}
	for n := range other.names {
		u.Add(n)
	}
}

// PropagateChildUsagesWithinContext adds the usages of a nested body that
// are not declared by the enclosing function itself. namesInContext lists
// the reified parameters of the enclosing signature; it is only called when
// child is non-empty.
func (u *Usages) PropagateChildUsagesWithinContext(child *Usages, namesInContext func() []string) {
	if !child.WereUsed() {
		return
	}
	var local map[string]struct{}
	if namesInContext != nil {
		names := namesInContext()
		local = make(map[string]struct{}, len(names))
		for _, n := range names {
			local[n] = struct{}{}
		}
	}
	for n := range child.names {
		if _, ok := local[n]; !ok {
			u.Add(n)
		}
	}
}
