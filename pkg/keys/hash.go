package keys

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/ledgerstore/ledgerstore/pkg/types"
)

// childSlot hashes one leaf value at a given path through the key's
// child tree. The path encodes nesting: each "next_child" step appends
// one index to it.
func childSlot(path []uint32, value string) [32]byte {
	h := sha256.New()
	buf := make([]byte, 4)
	for _, p := range path {
		binary.BigEndian.PutUint32(buf, p)
		h.Write(buf)
	}
	h.Write([]byte{0xff}) // path/value separator
	h.Write([]byte(value))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func xor3(a, b, c [32]byte) [32]byte {
	var out [32]byte
	for i := range out {
		out[i] = a[i] ^ b[i] ^ c[i]
	}
	return out
}

// Fingerprint computes the stable fingerprint of key following the
// field/nesting contract: a Data key hashes three
// sibling slots (deployment, name, id); a Metadata key hashes
// ("subgraphs", kind name, id), with "subgraphs" nested one level
// deeper than its siblings for backward compatibility with an earlier
// representation that used it as a literal deployment id.
//
// See the package doc for why this does not reproduce the upstream
// stable-hash crate's literal byte output.
func Fingerprint(key types.EntityKey) [32]byte {
	var slot0, slot1, slot2 [32]byte
	if key.Type.IsData() {
		slot0 = childSlot([]uint32{0}, string(key.Deployment))
		slot1 = childSlot([]uint32{1}, key.Type.DataName())
		slot2 = childSlot([]uint32{2}, key.ID)
	} else {
		slot0 = childSlot([]uint32{0, 0}, "subgraphs")
		slot1 = childSlot([]uint32{1}, key.Type.MetadataKind().String())
		slot2 = childSlot([]uint32{2}, key.ID)
	}
	mixed := xor3(slot0, slot1, slot2)
	return sha256.Sum256(mixed[:])
}

// FingerprintHex returns the hex encoding of Fingerprint, the form used
// for logging and for the on-the-wire representation of a key.
func FingerprintHex(key types.EntityKey) string {
	fp := Fingerprint(key)
	return hex.EncodeToString(fp[:])
}
