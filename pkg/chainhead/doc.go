/*
Package chainhead implements the Chain Head Tracker: it maintains a
pointer to the best block for which an ancestor_count-deep prefix is
locally known, over a block-ancestry graph persisted by
pkg/blockstore.

Tracker guards its head pointer with a sync.RWMutex the same way the
cluster FSM in this stack guards its applied state — a single writer
calls AttemptChainHeadUpdate per deployment, concurrent readers call
the query methods.

Ties among multiple blocks at the same maximum height are broken by
the lexicographically greatest hash (an explicit, documented resolution
of the open tie-break question — see DESIGN.md).
*/
package chainhead
