// Package schema loads blueprint option schemas and enumerates the
// configuration space they define.
//
// An option schema is a JSON document at the blueprint root mapping option
// names to either a scalar default (a constant) or a list of allowed choices
// (a combinatorial axis). Declaration order is preserved so enumeration is
// deterministic. The document shape is validated against a built-in CUE
// schema before use.
package schema
