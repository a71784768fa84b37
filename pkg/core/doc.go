// Package core defines the shared types of the strata data-access layer:
// rows, column definitions, find options, event topics, migration
// descriptors, and the error taxonomy. Internal packages depend on core;
// core depends on nothing but the standard library.
package core
