/*
Package entitystore defines the capability interfaces the entity cache
and modification planner depend on (Reader, Writer, the combined
Store) and provides one concrete, embedded implementation of them
backed by BoltDB.

A production indexing node would run a relational/SQL backing store;
the cache and planner only ever depend on the Reader/Writer interfaces
below, so any store that satisfies them (relational, embedded, or
otherwise) can stand behind the core. BoltStore exists so the core is
testable end-to-end without a database server.

# Layout

Entities are stored one bucket per (deployment, entity type) pair, JSON
encoded, keyed by entity id. A second bucket per deployment holds the
current BlockPointer. TransactBlockOperations and
RevertBlockOperations both run inside a single bbolt read-write
transaction so the modification set and the pointer advance are
atomic; both also check their caller-supplied parent/current hash
against the stored pointer before touching any bucket, rejecting the
whole transaction with a ConstraintViolation on a mismatch.
*/
package entitystore
