/*
Package query implements the filter, order, range, window, and
collection algebra consumed by both the entity cache's read-through
path and the backing entity store.

A Query couples a Collection (All of one or more entity types, or a
set of per-parent Windows) with an optional Filter, an Order, and a
Range. Simplify performs the one rewrite the query layer must
apply before dispatch: a Window with exactly one window, one parent id,
and a Direct link is equivalent to an All query over the child type
with an extra filter conjunct, and is cheaper for a backing store to
execute. AndMaybe flattens nested Ands so repeated simplification never
grows a deep filter tree.
*/
package query
