// Package policy provides Rego-based policy evaluation for generated
// projects.
//
// Policies run after the structural checks and act as an advisory or
// blocking gate on a configuration: built-in policies cover naming and
// version pinning conventions, and additional .rego files can be loaded
// from disk. A policy contributes violations through a "deny" rule set;
// violations at error severity block the configuration.
package policy
