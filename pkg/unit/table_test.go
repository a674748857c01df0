package unit

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

func TestTable_SetGet(t *testing.T) {
	table := NewTable()
	u := New("util")
	u.File = "/units/util.yaml"

	if err := table.Set("util", u); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok := table.Get("util")
	if !ok || got != u {
		t.Fatalf("Get() = %v, %v; want the stored unit", got, ok)
	}
	if name, ok := table.LookupFile("/units/util.yaml"); !ok || name != "util" {
		t.Errorf("LookupFile() = %q, %v; want util", name, ok)
	}
	if table.Count() != 1 {
		t.Errorf("Count() = %d, want 1", table.Count())
	}
}

func TestTable_SetInvalid(t *testing.T) {
	table := NewTable()

	var tableErr *TableError
	if err := table.Set("x", nil); !errors.As(err, &tableErr) {
		t.Errorf("Set(nil) error = %v, want *TableError", err)
	}
	if err := table.Set("a..b", New("a..b")); !errors.As(err, &tableErr) {
		t.Errorf("Set(bad name) error = %v, want *TableError", err)
	}
}

func TestTable_RegisterChild(t *testing.T) {
	table := NewTable()
	pkg := New("pkg")
	pkg.IsPackage = true
	if err := table.Set("pkg", pkg); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	sub := New("pkg.sub")
	if err := table.RegisterChild("pkg", "sub", sub); err != nil {
		t.Fatalf("RegisterChild() error = %v", err)
	}

	if got, ok := table.Child("pkg", "sub"); !ok || got != sub {
		t.Errorf("Child() = %v, %v; want sub", got, ok)
	}
	if got, ok := table.Get("pkg.sub"); !ok || got != sub {
		t.Errorf("Get(pkg.sub) = %v, %v; want sub", got, ok)
	}
	if !pkg.HasAttr("sub") {
		t.Error("parent does not expose registered child")
	}

	tests := []struct {
		name   string
		parent string
		short  string
		child  *Unit
	}{
		{"missing parent", "nope", "sub", New("nope.sub")},
		{"mismatched name", "pkg", "other", New("pkg.sub")},
		{"nil child", "pkg", "sub", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tableErr *TableError
			if err := table.RegisterChild(tt.parent, tt.short, tt.child); !errors.As(err, &tableErr) {
				t.Errorf("RegisterChild() error = %v, want *TableError", err)
			}
		})
	}
}

func TestTable_Remove(t *testing.T) {
	table := NewTable()
	u := New("util")
	u.File = "/units/util.yaml"
	_ = table.Set("util", u)

	table.Remove("util")
	table.Remove("missing")

	if _, ok := table.Get("util"); ok {
		t.Error("Get() found removed unit")
	}
	if _, ok := table.LookupFile("/units/util.yaml"); ok {
		t.Error("LookupFile() found removed unit")
	}
}

func TestTable_SetMovedFile(t *testing.T) {
	table := NewTable()
	u := New("util")
	u.File = "/units/util.yaml"
	_ = table.Set("util", u)

	// The same record is re-executed from a package directory.
	u.File = "/units/util/package.yaml"
	_ = table.Set("util", u)

	if name, ok := table.LookupFile("/units/util.yaml"); ok {
		t.Errorf("LookupFile(old) = %q, want unmapped", name)
	}
	if name, ok := table.LookupFile("/units/util/package.yaml"); !ok || name != "util" {
		t.Errorf("LookupFile(new) = %q, %v; want util", name, ok)
	}

	table.Remove("util")
	if _, ok := table.LookupFile("/units/util/package.yaml"); ok {
		t.Error("LookupFile() found removed unit after move")
	}
}

func TestTable_LookupFileNormalizes(t *testing.T) {
	table := NewTable()
	u := New("util")
	u.File = "/units/./lib/../util.yaml"
	_ = table.Set("util", u)

	if name, ok := table.LookupFile("/units/util.yaml"); !ok || name != "util" {
		t.Errorf("LookupFile() = %q, %v; want util", name, ok)
	}
}

func TestTable_SetFileTakenOver(t *testing.T) {
	table := NewTable()
	a := New("a")
	a.File = "/units/shared.yaml"
	_ = table.Set("a", a)

	b := New("b")
	b.File = "/units/shared.yaml"
	_ = table.Set("b", b)

	// Removing a must not unmap the path b now owns.
	table.Remove("a")
	if name, ok := table.LookupFile("/units/shared.yaml"); !ok || name != "b" {
		t.Errorf("LookupFile() = %q, %v; want b", name, ok)
	}
}

func TestTable_Version(t *testing.T) {
	table := NewTable()
	empty := table.Version()

	u := New("util")
	u.Reset(&Document{})
	_ = table.Set("util", u)
	v1 := table.Version()
	if v1 == empty {
		t.Error("Version() unchanged after Set")
	}

	u.Reset(&Document{})
	v2 := table.Version()
	if v2 == v1 {
		t.Error("Version() unchanged after re-execution")
	}
	if len(v2) != 16 {
		t.Errorf("len(Version()) = %d, want 16", len(v2))
	}
}

func TestTable_NamesAndMetadata(t *testing.T) {
	table := NewTable()
	if err := RegisterBase(table); err != nil {
		t.Fatalf("RegisterBase() error = %v", err)
	}
	_ = table.Set("app", New("app"))

	want := []string{"app", "builtins", "main", "runtime"}
	if got := table.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	meta := table.Metadata()
	if len(meta) != 4 || meta[0].Name != "app" {
		t.Errorf("Metadata() = %+v", meta)
	}
	if meta[1].Generation != 1 {
		t.Errorf("base unit generation = %d, want 1", meta[1].Generation)
	}
}

func TestRegisterBase_KeepsExisting(t *testing.T) {
	table := NewTable()
	rt := New(RuntimeName)
	_ = table.Set(RuntimeName, rt)

	if err := RegisterBase(table); err != nil {
		t.Fatalf("RegisterBase() error = %v", err)
	}
	if got, _ := table.Get(RuntimeName); got != rt {
		t.Error("RegisterBase() replaced an existing unit")
	}
	for _, name := range BaseNames {
		if !IsBase(name) {
			t.Errorf("IsBase(%q) = false", name)
		}
	}
	if IsBase("app") {
		t.Error("IsBase(app) = true")
	}
}

func TestTable_ConcurrentAccess(t *testing.T) {
	table := NewTable()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('a' + i))
			_ = table.Set(name, New(name))
			table.Get(name)
			table.Names()
			table.Version()
		}(i)
	}
	wg.Wait()
	if table.Count() != 10 {
		t.Errorf("Count() = %d, want 10", table.Count())
	}
}
