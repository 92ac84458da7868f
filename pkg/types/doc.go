/*
Package types defines the data model shared by the entity cache, the
query algebra, the modification planner, and the store event bus:
deployment identifiers, entity keys and types, entity values, block
pointers, and the operations (Update/Overwrite/Remove) the cache
accumulates before a block is committed.

# Entity identity

An entity is addressed by the triple (deployment, entity type, entity
id). EntityType is a closed tagged union: a Data type names a
user-schema GraphQL-like type, a Metadata type names one of a fixed
set of internal bookkeeping kinds. The two variants render differently
(Data is bare, Metadata is sigil-prefixed) and hash differently — see
package keys for the stable-hash contract that depends on this
distinction.

# Merge semantics

Entity.Merge overwrites wholesale. Entity.MergeRemoveNullFields treats
a null attribute in the incoming map as a deletion of that attribute in
the base — this is the merge used by every Update accumulation and by
the modification planner.
*/
package types
