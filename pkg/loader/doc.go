// Package loader finds unit sources on a search path and executes them
// into the module table.
//
// A unit called S in search directory D is either a package, when
// D/S/package.yaml exists, or a plain unit stored in D/S.yaml (or .yml).
// A package's search path is its own directory, so its children live next
// to package.yaml.
//
// Executing a unit parses its YAML document and runs the import statements
// it declares through the Importer bound with Bind. The loader does not
// decide whether an import is served from the table or loaded again; that
// is up to the importer, which is how a reload reaches every dependency.
package loader
