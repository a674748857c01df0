package unit

// Names of the base units every host registers before loading anything.
// They have no source file and are never reloaded by default.
const (
	RuntimeName  = "runtime"
	MainName     = "main"
	BuiltinsName = "builtins"
)

// BaseNames lists the base unit names in registration order.
var BaseNames = []string{RuntimeName, MainName, BuiltinsName}

// RegisterBase adds the base units to t. Existing entries are kept.
func RegisterBase(t *Table) error {
	for _, name := range BaseNames {
		if _, ok := t.Get(name); ok {
			continue
		}
		u := New(name)
		u.Reset(&Document{})
		if err := t.Set(name, u); err != nil {
			return err
		}
	}
	return nil
}

// IsBase reports whether name is one of the base units.
func IsBase(name string) bool {
	for _, b := range BaseNames {
		if b == name {
			return true
		}
	}
	return false
}
