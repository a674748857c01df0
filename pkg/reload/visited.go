package reload

// visitedSet records the fully-qualified names reached during one reload.
// A name in the set is never loaded again by that reload.
type visitedSet map[string]struct{}

// seed marks every name in names and returns v.
func (v visitedSet) seed(names []string) visitedSet {
	for _, name := range names {
		v[name] = struct{}{}
	}
	return v
}

func (v visitedSet) has(name string) bool {
	_, ok := v[name]
	return ok
}

func (v visitedSet) mark(name string) {
	v[name] = struct{}{}
}

func (v visitedSet) clear() {
	for name := range v {
		delete(v, name)
	}
}
