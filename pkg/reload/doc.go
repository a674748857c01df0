// Package reload recursively reloads a unit and every unit it imports.
//
// Reload installs an import interceptor on the host for the duration of
// the call. Every import statement executed while the target is re-run
// goes through the interceptor, which re-executes the imported unit the
// first time it is reached and serves it from the module table afterwards.
// This makes each reachable unit run exactly once per call, and cycles
// terminate.
//
//	r := reload.New(h, reload.WithLogger(logger))
//	var report reload.Report
//	if _, err := r.Reload(ctx, app, reload.WithReport(&report)); err != nil {
//	    return err
//	}
//	fmt.Println(report.Reloaded)
//
// Units in the exclusion list (DefaultExclude unless WithExclude is given)
// are never re-executed. A failed reload leaves already re-executed units
// in their new state; the host's import strategy is restored either way.
package reload
