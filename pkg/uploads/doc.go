// Package uploads manages submitted package archives awaiting promotion.
//
// An upload record is created when an actor posts raw archive bytes. The
// archive validator runs synchronously at creation and its outcome is
// persisted on the record exactly once; the validity flag is authoritative
// at read time and records are never mutated afterwards. Payload bytes
// live in the blob store, the record only carries the content key.
//
// Records are ephemeral: a cron sweeper removes old ones, since anything
// worth keeping has been promoted into the catalog by then.
package uploads
