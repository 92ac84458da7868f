/*
Package keys implements the stable-hash contract for EntityKey
fingerprints.

Fingerprints are on-chain-visible and therefore format-stable: this
package pins the mapping from EntityKey to its child hash slots, not
the exact bytes a given Go implementation happens to produce. A Data
key hashes the three sibling slots (deployment, name, entity id). A
Metadata key hashes ("subgraphs", kind name, entity id), with the
literal "subgraphs" placed one nesting level deeper than the other two
slots for backward compatibility with an earlier representation in
which metadata keys used a reserved deployment id of that literal
value — see EntityKey.Fingerprint.

This is a from-scratch construction over crypto/sha256, not a port of
the upstream stable-hash crate: that crate's bespoke order-independent
mixing function is not available anywhere in this repository's source
material, only its call sites (see DESIGN.md). The literal hex vectors
that crate produces are not reproducible here; Fingerprint instead
guarantees the documented field/nesting contract and full determinism
across repeated calls.
*/
package keys
