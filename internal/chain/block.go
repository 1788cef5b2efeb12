package chain

import (
	"strings"
	"time"
)

// Block is a sealed group of log entries. Once the proof-of-work search has
// fixed the nonce the block is immutable.
type Block struct {
	Timestamp    string   `json:"timestamp"`
	Logs         []Entry  `json:"logs"`
	MerkleRoot   string   `json:"merkle_root"`
	MerkleTree   []string `json:"merkle_tree"`
	PreviousHash *string  `json:"previous_hash"`
	Nonce        int      `json:"nonce"`
}

// hashable returns the map form used for canonical hashing. It must mirror
// the JSON field set exactly: the block hash covers every persisted field,
// including the nonce.
func (b *Block) hashable() map[string]any {
	return map[string]any{
		"timestamp":     b.Timestamp,
		"logs":          b.Logs,
		"merkle_root":   b.MerkleRoot,
		"merkle_tree":   b.MerkleTree,
		"previous_hash": b.PreviousHash,
		"nonce":         b.Nonce,
	}
}

// Hash returns the hex SHA-256 of the block's canonical form.
func (b *Block) Hash() string { return HashValue(b.hashable()) }

// satisfiesProof reports whether the block hash has the required number of
// leading zero characters.
func (b *Block) satisfiesProof(difficulty int) bool {
	return strings.HasPrefix(b.Hash(), strings.Repeat("0", difficulty))
}

// buildMerkleTree hashes every entry, then repeatedly hashes adjacent pairs
// up to the root. Any level with an odd element count duplicates its last
// element before pairing; the duplicate is part of the stored sequence. The
// returned sequence is every level concatenated in construction order:
// leaves first, root last.
func buildMerkleTree(logs []Entry) []string {
	if len(logs) == 0 {
		return nil
	}
	hashes := make([]string, len(logs))
	for i, l := range logs {
		hashes[i] = HashValue(l)
	}
	if len(hashes)%2 == 1 {
		hashes = append(hashes, hashes[len(hashes)-1])
	}

	var tree []string
	level := hashes
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		tree = append(tree, level...)
		next := make([]string, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, HashValue(level[i]+level[i+1]))
		}
		level = next
	}
	return append(tree, level...)
}

// sealBlock builds a block over logs, computes its Merkle tree, and runs the
// nonce search until the proof predicate holds.
//
// MerkleRoot is read from the tree's first element. Construction order places
// the true root last and a leaf hash first; the historical convention is kept
// so that previously exported snapshots keep verifying. VerifyChain compares
// whole trees, so the field is a label rather than a proof anchor.
func sealBlock(logs []Entry, previousHash *string, difficulty int, now time.Time) *Block {
	if len(logs) == 0 {
		return nil
	}
	tree := buildMerkleTree(logs)
	b := &Block{
		Timestamp:    now.UTC().Format(time.RFC3339Nano),
		Logs:         logs,
		MerkleRoot:   tree[0],
		MerkleTree:   tree,
		PreviousHash: previousHash,
		Nonce:        0,
	}
	for !b.satisfiesProof(difficulty) {
		b.Nonce++
	}
	return b
}

// merkleTreeEqual compares two tree sequences element-wise.
func merkleTreeEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
