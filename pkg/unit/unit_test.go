package unit

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		want    *Document
		wantErr bool
	}{
		{
			name: "empty source",
			src:  "",
			want: &Document{},
		},
		{
			name: "scalar and mapping imports",
			src: `exports: [alpha, beta]
imports:
  - util
  - name: pkg
    from: [alpha, "*"]
  - name: pkg.sub
    as: sub
values:
  greeting: hello
`,
			want: &Document{
				Exports: []string{"alpha", "beta"},
				Imports: []Import{
					{Name: "util"},
					{Name: "pkg", From: []string{"alpha", "*"}},
					{Name: "pkg.sub", As: "sub"},
				},
				Values: map[string]any{"greeting": "hello"},
			},
		},
		{
			name:    "unknown field",
			src:     "exportz: [a]\n",
			wantErr: true,
		},
		{
			name:    "empty name segment",
			src:     "imports:\n  - pkg..sub\n",
			wantErr: true,
		},
		{
			name:    "dotted from-name",
			src:     "imports:\n  - name: pkg\n    from: [a.b]\n",
			wantErr: true,
		},
		{
			name:    "alias with fromlist",
			src:     "imports:\n  - name: pkg\n    from: [a]\n    as: p\n",
			wantErr: true,
		},
		{
			name:    "wildcard export",
			src:     "exports: [\"*\"]\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			src:     "imports: [\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.src))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse() error = nil, want error")
				}
				var synErr *SyntaxError
				if !errors.As(err, &synErr) {
					t.Fatalf("Parse() error type = %T, want *SyntaxError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParse_ErrorLine(t *testing.T) {
	_, err := Parse([]byte("imports:\n  - util\nvalues: [\n"))
	var synErr *SyntaxError
	if !errors.As(err, &synErr) {
		t.Fatalf("Parse() error = %v, want *SyntaxError", err)
	}
	if synErr.Line == 0 {
		t.Errorf("SyntaxError.Line = 0, want a line number (message %q)", synErr.Message)
	}
}

func TestImport_String(t *testing.T) {
	tests := []struct {
		imp  Import
		want string
	}{
		{Import{Name: "util"}, "import util"},
		{Import{Name: "pkg.sub", As: "sub"}, "import pkg.sub as sub"},
		{Import{Name: "pkg", From: []string{"a", "*"}}, "from pkg import a, *"},
	}
	for _, tt := range tests {
		if got := tt.imp.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestUnit_Reset(t *testing.T) {
	u := New("pkg")
	u.IsPackage = true
	u.Reset(&Document{Exports: []string{"a"}, Values: map[string]any{"x": 1}})
	u.Bind("util", "util")
	u.AddDep("util")
	u.setChild("sub", "pkg.sub")

	if u.Generation() != 1 {
		t.Fatalf("Generation() = %d, want 1", u.Generation())
	}

	u.Reset(&Document{})

	if u.Generation() != 2 {
		t.Errorf("Generation() = %d, want 2", u.Generation())
	}
	if _, ok := u.Exports(); ok {
		t.Error("Exports() declared after reset with no exports")
	}
	if len(u.Bindings()) != 0 || len(u.Deps()) != 0 {
		t.Error("bindings and deps should be cleared by Reset")
	}
	if _, ok := u.Value("x"); ok {
		t.Error("values should be cleared by Reset")
	}
	if name, ok := u.ChildName("sub"); !ok || name != "pkg.sub" {
		t.Errorf("ChildName(sub) = %q, %v; children must survive Reset", name, ok)
	}
	if !u.HasAttr("sub") {
		t.Error("HasAttr(sub) = false, want true")
	}
}

func TestUnit_EmptyExportsDeclared(t *testing.T) {
	u := New("pkg")
	u.Reset(&Document{Exports: []string{}})
	exports, ok := u.Exports()
	if !ok || len(exports) != 0 {
		t.Errorf("Exports() = %v, %v; want empty declared list", exports, ok)
	}
}

func TestUnit_AddDepDedup(t *testing.T) {
	u := New("app")
	u.AddDep("util")
	u.AddDep("helpers")
	u.AddDep("util")
	if got, want := u.Deps(), []string{"util", "helpers"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Deps() = %v, want %v", got, want)
	}
}

func TestUnit_ScopeAndLeaf(t *testing.T) {
	u := New("pkg.sub")
	if u.Leaf() != "sub" {
		t.Errorf("Leaf() = %q, want sub", u.Leaf())
	}
	if u.Scope().IsPackage() {
		t.Error("plain unit scope reports package")
	}

	p := New("pkg")
	p.IsPackage = true
	p.Path = []string{"/units/pkg"}
	s := p.Scope()
	if !s.IsPackage() || s.Name != "pkg" {
		t.Errorf("Scope() = %+v, want package scope for pkg", s)
	}
	var nilScope *Scope
	if nilScope.IsPackage() {
		t.Error("nil scope reports package")
	}
}

func TestValidateName(t *testing.T) {
	valid := []string{"a", "a.b", "pkg.sub.leaf"}
	invalid := []string{"", ".a", "a.", "a..b", "a/b", "a b"}
	for _, n := range valid {
		if err := ValidateName(n); err != nil {
			t.Errorf("ValidateName(%q) = %v, want nil", n, err)
		}
	}
	for _, n := range invalid {
		if err := ValidateName(n); err == nil {
			t.Errorf("ValidateName(%q) = nil, want error", n)
		}
	}
}
