/*
Package cache implements the Entity Cache: a two-level write buffer
(handler buffer over block buffer) with read-through snapshots, backed
by an LFU-evicted snapshot map per deployment.

A Cache is owned by exactly one indexing task for exactly one
deployment for the duration of one block. get consults the handler
buffer, then the block buffer, then falls through to the backing
store and caches the result. set/remove record pending EntityOps which
are folded into the block buffer on handler exit using
types.EntityOp.Accumulate. Handler nesting is a programmer error and
panics rather than returning a sentinel error, mirroring the
fail-fast invariant checks elsewhere in this stack.
*/
package cache
