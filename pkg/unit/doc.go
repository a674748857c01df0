// Package unit defines the data model shared by the loader, the resolver
// and the reloader: the Unit record, the YAML source Document a unit is
// executed from, and the Table that maps fully-qualified names to units.
//
// Units never point at each other directly. Children, import bindings and
// recorded dependencies are stored by name and resolved through the Table.
package unit
