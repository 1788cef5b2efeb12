package archive

import "encoding/binary"

const (
	metaKeyStr    = "chain/m"
	blockKeyPfx   = "chain/b/"
	blockKeyLen   = len(blockKeyPfx) + 8
	blockKeyPfxLn = len(blockKeyPfx)
)

func metaKey() []byte { return []byte(metaKeyStr) }

func blockKey(index uint64) []byte {
	k := make([]byte, blockKeyLen)
	copy(k, blockKeyPfx)
	binary.BigEndian.PutUint64(k[blockKeyPfxLn:], index)
	return k
}

func parseBlockKey(k []byte) (uint64, bool) {
	if len(k) != blockKeyLen || string(k[:blockKeyPfxLn]) != blockKeyPfx {
		return 0, false
	}
	return binary.BigEndian.Uint64(k[blockKeyPfxLn:]), true
}

// blockKeyRange returns the half-open key range covering all block records.
func blockKeyRange() (lower, upper []byte) {
	lower = blockKey(0)
	// Exclusive upper bound: the prefix with its final byte bumped covers
	// every possible index suffix.
	upper = []byte(blockKeyPfx)
	upper[len(upper)-1]++
	return lower, upper
}
