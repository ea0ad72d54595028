// Package catalog holds the promoted entity store, the promotion engine
// and the review state machine.
//
// Promotion converts a validated upload into a persisted entity. Each
// create produces a fresh identity, there is no dedup by content; an
// update targets an existing entity by id and replaces only the
// descriptor-derived fields. Review moves entities pending -> public or
// pending -> rejected through a conditional update, so two reviewers
// racing on the same entity cannot both win.
package catalog
