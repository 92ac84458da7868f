/*
Package blockstore persists the block-ancestry graph the Chain Head
Tracker (package chainhead) walks: one row per (deployment, network,
block hash) carrying that block's number and parent hash, embedded in
BoltDB the same way pkg/entitystore persists entity rows.

Genesis blocks are marked explicitly (IsGenesis) rather than inferred
from a zero parent hash, so the tracker can distinguish "no parent
because this is genesis" from "parent hash present but not yet
ingested" while walking backward.
*/
package blockstore
