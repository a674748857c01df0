package tracing

import (
	"go.opentelemetry.io/otel/attribute"
)

// Span names.
const (
	SpanReload   = "reload"
	SpanUnitLoad = "unit.load"
	SpanSync     = "git.sync"
)

// Attribute keys recorded on reload spans.
const (
	AttrReloadID    = "deepreload.reload.id"
	AttrReloadRoot  = "deepreload.reload.root"
	AttrReloadUnits = "deepreload.reload.units"

	AttrUnitName       = "deepreload.unit.name"
	AttrUnitFile       = "deepreload.unit.file"
	AttrUnitFound      = "deepreload.unit.found"
	AttrUnitGeneration = "deepreload.unit.generation"

	AttrGitCommit = "deepreload.git.commit"
)

// ReloadAttributes returns the attributes set when a reload starts.
func ReloadAttributes(id, root string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrReloadID, id),
		attribute.String(AttrReloadRoot, root),
	}
}

// UnitAttributes returns the attributes describing a loaded unit.
func UnitAttributes(name, file string, generation uint64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrUnitName, name),
		attribute.String(AttrUnitFile, file),
		attribute.Bool(AttrUnitFound, true),
		attribute.Int64(AttrUnitGeneration, int64(generation)),
	}
}
