/*
Package planner implements the Modification Planner: it folds a
cache's accumulated block buffer against read-through snapshots into
an ordered list of EntityModifications for atomic commit.

Plan batches snapshot misses, grouped by entity type, into a single
multi-get for the deployment of the buffered keys, then walks the buffer applying the current×op
resolution table, writing each result back into the snapshot map so
a second plan over the same (now-unbuffered) cache is a no-op.
*/
package planner
