package reload

import (
	"context"
	"errors"
	"io/fs"
	"reflect"
	"testing"
	"testing/fstest"

	"mercator-hq/deepreload/pkg/host"
	"mercator-hq/deepreload/pkg/loader"
	"mercator-hq/deepreload/pkg/resolve"
	"mercator-hq/deepreload/pkg/unit"
)

type fixture struct {
	fsys     fstest.MapFS
	table    *unit.Table
	host     *host.Host
	reloader *Reloader
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	fsys := fstest.MapFS{}
	for name, src := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(src)}
	}
	return newFixtureWithSource(t, fsys, loader.NewFSSource(fsys))
}

func newFixtureWithSource(t *testing.T, fsys fstest.MapFS, src loader.Source) *fixture {
	t.Helper()
	table := unit.NewTable()
	l := loader.New(loader.DefaultConfig(), src, table, nil)
	h, err := host.New(table, l, nil)
	if err != nil {
		t.Fatalf("host.New() error = %v", err)
	}
	return &fixture{fsys: fsys, table: table, host: h, reloader: New(h)}
}

func (f *fixture) importUnit(t *testing.T, name string) *unit.Unit {
	t.Helper()
	u, err := f.host.ImportUnit(name)
	if err != nil {
		t.Fatalf("ImportUnit(%s) error = %v", name, err)
	}
	return u
}

func (f *fixture) write(name, src string) {
	f.fsys[name] = &fstest.MapFile{Data: []byte(src)}
}

func (f *fixture) generation(t *testing.T, name string) uint64 {
	t.Helper()
	u, ok := f.table.Get(name)
	if !ok {
		t.Fatalf("unit %s not in table", name)
	}
	return u.Generation()
}

// assertClean checks the host and reloader are back to their idle state.
func (f *fixture) assertClean(t *testing.T) {
	t.Helper()
	if f.host.Installed() {
		t.Error("import strategy still installed after reload")
	}
	if f.host.Current() != f.host.Default() {
		t.Error("current strategy is not the one active before reload")
	}
	if len(f.reloader.visited) != 0 {
		t.Errorf("visited set not cleared: %v", f.reloader.visited)
	}
}

func TestReload_AcyclicExactlyOnce(t *testing.T) {
	f := newFixture(t, map[string]string{
		"app.yaml":       "imports: [util]\n",
		"util.yaml":      "imports: [helpers, constants]\n",
		"helpers.yaml":   "imports: [constants]\n",
		"constants.yaml": "values: {answer: 42}\n",
		"other.yaml":     "",
	})
	app := f.importUnit(t, "app")
	f.importUnit(t, "other")

	var report Report
	got, err := f.reloader.Reload(context.Background(), app, WithExclude(), WithReport(&report))
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got != app {
		t.Error("Reload() returned a different unit record")
	}

	want := []string{"app", "util", "helpers", "constants"}
	if !reflect.DeepEqual(report.Reloaded, want) {
		t.Errorf("Reloaded = %v, want %v", report.Reloaded, want)
	}
	for _, name := range want {
		if g := f.generation(t, name); g != 2 {
			t.Errorf("%s generation = %d, want 2", name, g)
		}
	}
	if g := f.generation(t, "other"); g != 1 {
		t.Errorf("unreachable unit reloaded: generation = %d", g)
	}
	f.assertClean(t)
}

func TestReload_PicksUpChanges(t *testing.T) {
	f := newFixture(t, map[string]string{
		"app.yaml":  "imports: [util]\n",
		"util.yaml": "values: {greeting: hello}\n",
	})
	app := f.importUnit(t, "app")

	f.write("util.yaml", "values: {greeting: bonjour}\nimports: [extra]\n")
	f.write("extra.yaml", "")

	if _, err := f.reloader.Reload(context.Background(), app); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	util, _ := f.table.Get("util")
	if v, _ := util.Value("greeting"); v != "bonjour" {
		t.Errorf("greeting = %v, want bonjour", v)
	}
	if _, ok := f.table.Get("extra"); !ok {
		t.Error("newly imported unit not loaded")
	}
}

func TestReload_CycleTerminates(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.yaml": "imports: [b]\n",
		"b.yaml": "imports: [a]\n",
	})
	a := f.importUnit(t, "a")

	var report Report
	if _, err := f.reloader.Reload(context.Background(), a, WithReport(&report)); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if want := []string{"a", "b"}; !reflect.DeepEqual(report.Reloaded, want) {
		t.Errorf("Reloaded = %v, want %v", report.Reloaded, want)
	}
	if f.generation(t, "a") != 2 || f.generation(t, "b") != 2 {
		t.Error("cycle members not reloaded exactly once")
	}
	f.assertClean(t)
}

func TestReload_Exclusion(t *testing.T) {
	files := map[string]string{
		"app.yaml":  "imports: [util, main]\n",
		"util.yaml": "",
		"main.yaml": "",
	}

	t.Run("default exclusion protects base units", func(t *testing.T) {
		f := newFixture(t, files)
		app := f.importUnit(t, "app")

		var report Report
		if _, err := f.reloader.Reload(context.Background(), app, WithReport(&report)); err != nil {
			t.Fatalf("Reload() error = %v", err)
		}
		if want := []string{"app", "util"}; !reflect.DeepEqual(report.Reloaded, want) {
			t.Errorf("Reloaded = %v, want %v", report.Reloaded, want)
		}
		if g := f.generation(t, unit.MainName); g != 1 {
			t.Errorf("main generation = %d, want 1", g)
		}
		if !reflect.DeepEqual(report.Excluded, DefaultExclude) {
			t.Errorf("Excluded = %v, want %v", report.Excluded, DefaultExclude)
		}
	})

	t.Run("explicit exclusion", func(t *testing.T) {
		f := newFixture(t, files)
		app := f.importUnit(t, "app")

		var report Report
		if _, err := f.reloader.Reload(context.Background(), app, WithExclude("util"), WithReport(&report)); err != nil {
			t.Fatalf("Reload() error = %v", err)
		}
		if want := []string{"app", "main"}; !reflect.DeepEqual(report.Reloaded, want) {
			t.Errorf("Reloaded = %v, want %v", report.Reloaded, want)
		}
		if g := f.generation(t, "util"); g != 1 {
			t.Errorf("excluded util generation = %d, want 1", g)
		}
		f.assertClean(t)
	})
}

func TestReload_PackageBackReference(t *testing.T) {
	f := newFixture(t, map[string]string{
		"pkg/package.yaml": "imports: [pkg.sub]\n",
		"pkg/sub.yaml":     "imports: [pkg]\n",
	})
	pkg := f.importUnit(t, "pkg")

	var report Report
	got, err := f.reloader.Reload(context.Background(), pkg, WithReport(&report))
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got != pkg {
		t.Errorf("Reload() = %v, want pkg", got.Name)
	}
	if want := []string{"pkg", "pkg.sub"}; !reflect.DeepEqual(report.Reloaded, want) {
		t.Errorf("Reloaded = %v, want %v", report.Reloaded, want)
	}
	if f.generation(t, "pkg") != 2 || f.generation(t, "pkg.sub") != 2 {
		t.Error("pkg and pkg.sub should each be executed once more")
	}
	if child, ok := f.table.Child("pkg", "sub"); !ok || child.Name != "pkg.sub" {
		t.Error("pkg.sub not registered as child after reload")
	}
	f.assertClean(t)
}

func TestReload_NestedTarget(t *testing.T) {
	f := newFixture(t, map[string]string{
		"pkg/package.yaml": "imports: [pkg.sub]\n",
		"pkg/sub.yaml":     "imports: [pkg]\n",
	})
	f.importUnit(t, "pkg")

	var report Report
	sub, err := f.reloader.ReloadName(context.Background(), "pkg.sub", WithReport(&report))
	if err != nil {
		t.Fatalf("ReloadName() error = %v", err)
	}
	if sub.Name != "pkg.sub" {
		t.Errorf("ReloadName() = %s, want pkg.sub", sub.Name)
	}
	if want := []string{"pkg.sub", "pkg"}; !reflect.DeepEqual(report.Reloaded, want) {
		t.Errorf("Reloaded = %v, want %v", report.Reloaded, want)
	}
}

func TestReload_HeadNotFound(t *testing.T) {
	f := newFixture(t, map[string]string{
		"pkg/package.yaml": "",
	})
	pkg := f.importUnit(t, "pkg")

	// Neither pkg.ghost nor the top-level ghost exists.
	f.write("pkg/package.yaml", "imports: [ghost]\n")

	var report Report
	_, err := f.reloader.Reload(context.Background(), pkg, WithReport(&report))
	if !errors.Is(err, resolve.ErrUnitNotFound) {
		t.Fatalf("Reload() error = %v, want ErrUnitNotFound", err)
	}
	var execErr *loader.ExecError
	if !errors.As(err, &execErr) || execErr.Unit != "pkg" {
		t.Errorf("Reload() error = %v, want ExecError for pkg", err)
	}
	if want := []string{"pkg.ghost", "ghost"}; !reflect.DeepEqual(report.Missing, want) {
		t.Errorf("Missing = %v, want %v", report.Missing, want)
	}
	if report.Err == nil || report.Succeeded() {
		t.Error("report does not record the failure")
	}
	f.assertClean(t)
}

func TestReload_TargetSourceRemoved(t *testing.T) {
	f := newFixture(t, map[string]string{"util.yaml": ""})
	util := f.importUnit(t, "util")
	delete(f.fsys, "util.yaml")

	_, err := f.reloader.Reload(context.Background(), util)
	var nf *resolve.NotFoundError
	if !errors.As(err, &nf) || nf.Name != "util" {
		t.Fatalf("Reload() error = %v, want NotFoundError for util", err)
	}
	f.assertClean(t)
}

func TestReload_InconsistentParent(t *testing.T) {
	f := newFixture(t, map[string]string{})
	orphan := unit.New("ghost.sub")
	if err := f.table.Set("ghost.sub", orphan); err != nil {
		t.Fatal(err)
	}

	_, err := f.reloader.Reload(context.Background(), orphan)
	if !errors.Is(err, resolve.ErrInconsistentParent) {
		t.Fatalf("Reload() error = %v, want ErrInconsistentParent", err)
	}
	f.assertClean(t)
}

func TestReload_WildcardSingleExpansion(t *testing.T) {
	f := newFixture(t, map[string]string{
		"app.yaml":           "imports:\n  - name: pkg\n    from: [\"*\"]\n",
		"pkg/package.yaml":   "exports: [a, b, c]\n",
		"pkg/a/package.yaml": "exports: [deep]\n",
		"pkg/a/deep.yaml":    "",
		"pkg/b.yaml":         "exports: [x]\nvalues: {x: 1}\n",
		"pkg/c.yaml":         "",
	})
	app := f.importUnit(t, "app")
	if _, ok := f.table.Get("pkg.a.deep"); ok {
		t.Fatal("initial import expanded a nested export list")
	}

	var report Report
	if _, err := f.reloader.Reload(context.Background(), app, WithReport(&report)); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	want := []string{"app", "pkg", "pkg.a", "pkg.b", "pkg.c"}
	if !reflect.DeepEqual(report.Reloaded, want) {
		t.Errorf("Reloaded = %v, want %v", report.Reloaded, want)
	}
	if _, ok := f.table.Get("pkg.a.deep"); ok {
		t.Error("reload expanded a nested export list")
	}
	for _, short := range []string{"a", "b", "c"} {
		if target, ok := app.Binding(short); !ok || target != "pkg."+short {
			t.Errorf("Binding(%s) = %q, %v", short, target, ok)
		}
	}
}

func TestReload_ContextCancelled(t *testing.T) {
	f := newFixture(t, map[string]string{"app.yaml": ""})
	app := f.importUnit(t, "app")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.reloader.Reload(ctx, app); !errors.Is(err, context.Canceled) {
		t.Fatalf("Reload() error = %v, want context.Canceled", err)
	}
	if g := f.generation(t, "app"); g != 1 {
		t.Errorf("app generation = %d, want 1", g)
	}
	f.assertClean(t)
}

// hookSource runs a callback before reading a chosen file.
type hookSource struct {
	loader.Source
	file string
	hook func()
}

func (s *hookSource) ReadFile(name string) ([]byte, error) {
	if name == s.file && s.hook != nil {
		s.hook()
	}
	return s.Source.ReadFile(name)
}

func TestReload_RejectsNestedCall(t *testing.T) {
	fsys := fstest.MapFS{
		"app.yaml":  {Data: []byte("imports: [util]\n")},
		"util.yaml": {Data: []byte("")},
	}
	src := &hookSource{Source: loader.NewFSSource(fsys), file: "util.yaml"}
	f := newFixtureWithSource(t, fsys, src)
	app := f.importUnit(t, "app")

	var nestedErr error
	src.hook = func() {
		_, nestedErr = f.reloader.Reload(context.Background(), app)
	}

	if _, err := f.reloader.Reload(context.Background(), app); err != nil {
		t.Fatalf("outer Reload() error = %v", err)
	}
	if !errors.Is(nestedErr, ErrReentrant) {
		t.Errorf("nested Reload() error = %v, want ErrReentrant", nestedErr)
	}
	f.assertClean(t)
}

type otherStrategy struct{}

func (*otherStrategy) Import(string, *unit.Scope, []string) (*unit.Unit, error) {
	return nil, fs.ErrNotExist
}

func TestReload_ForeignStrategyInstalled(t *testing.T) {
	f := newFixture(t, map[string]string{"app.yaml": ""})
	app := f.importUnit(t, "app")

	restore, err := f.host.Install(&otherStrategy{})
	if err != nil {
		t.Fatal(err)
	}
	defer restore()

	_, err = f.reloader.Reload(context.Background(), app)
	if !errors.Is(err, ErrReentrant) || !errors.Is(err, host.ErrStrategyInstalled) {
		t.Fatalf("Reload() error = %v, want ErrReentrant wrapping ErrStrategyInstalled", err)
	}
	if len(f.reloader.visited) != 0 {
		t.Error("visited set not cleared after failed install")
	}
}

func TestReload_ReportMetadata(t *testing.T) {
	f := newFixture(t, map[string]string{"app.yaml": ""})
	app := f.importUnit(t, "app")

	var first, second Report
	if _, err := f.reloader.Reload(context.Background(), app, WithReport(&first)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.reloader.Reload(context.Background(), app, WithReport(&second)); err != nil {
		t.Fatal(err)
	}
	if first.ID == "" || first.ID == second.ID {
		t.Errorf("report IDs = %q, %q; want distinct non-empty", first.ID, second.ID)
	}
	if first.Root != "app" || first.Status() != "success" || first.ErrorMessage() != "" {
		t.Errorf("report = %+v", first)
	}
	if first.StartedAt.IsZero() || first.Duration < 0 {
		t.Errorf("report timing = %v, %v", first.StartedAt, first.Duration)
	}
	if g := f.generation(t, "app"); g != 3 {
		t.Errorf("app generation = %d, want 3 after two reloads", g)
	}
}

func TestReload_NilTarget(t *testing.T) {
	f := newFixture(t, map[string]string{})
	if _, err := f.reloader.Reload(context.Background(), nil); err == nil {
		t.Error("Reload(nil) error = nil")
	}
	if _, err := f.reloader.ReloadName(context.Background(), "missing"); !errors.Is(err, resolve.ErrUnitNotFound) {
		t.Errorf("ReloadName(missing) error = %v, want ErrUnitNotFound", err)
	}
}

func TestVisitedSet(t *testing.T) {
	v := make(visitedSet).seed([]string{"a"})
	if !v.has("a") || v.has("b") {
		t.Fatal("seed did not mark exactly the seeded names")
	}
	v.mark("b")
	if !v.has("b") {
		t.Error("mark did not record b")
	}
	v.clear()
	if len(v) != 0 {
		t.Errorf("clear left %d names", len(v))
	}
}
