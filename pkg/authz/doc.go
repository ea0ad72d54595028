// Package authz decides whether an actor may invoke submission, promotion
// and review operations in the marketplace catalog.
//
// The Gate interface is the single seam the core depends on. The production
// implementation, RuleGate, evaluates an ordered rule table; the first rule
// that matches the operation and kind and whose capability requirement is
// conclusive decides the outcome. Rules can be loaded from a YAML file and
// hot-reloaded when the file changes.
package authz
