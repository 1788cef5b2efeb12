package chain

import (
	"os"
	"path/filepath"
	"testing"

	logpkg "github.com/kireeti123/skyarclog/pkg/log"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newTestChain(t *testing.T, size int) *Chain {
	t.Helper()
	return New(Options{
		ChainSize: size,
		Logger:    logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{})),
	})
}

// fill adds n entries and returns the blocks sealed along the way.
func fill(c *Chain, n int) []*Block {
	var sealed []*Block
	for i := 0; i < n; i++ {
		if b := c.AddLog(Entry{"seq": i, "msg": "entry"}); b != nil {
			sealed = append(sealed, b)
		}
	}
	return sealed
}

func TestAddLogSealsAtChainSize(t *testing.T) {
	c := newTestChain(t, 3)
	if b := c.AddLog(Entry{"n": 1}); b != nil {
		t.Fatalf("sealed before chain size")
	}
	c.AddLog(Entry{"n": 2})
	b := c.AddLog(Entry{"n": 3})
	if b == nil {
		t.Fatalf("no block sealed at chain size")
	}
	if len(b.Logs) != 3 {
		t.Fatalf("sealed block has %d entries, want 3", len(b.Logs))
	}
	if c.PendingLen() != 0 {
		t.Fatalf("pending block not reset after sealing")
	}
	if b.PreviousHash != nil {
		t.Fatalf("first block should have no previous hash")
	}
	if c.PreviousHash() != b.Hash() {
		t.Fatalf("chain previous hash not updated to sealed block hash")
	}
}

func TestAddLogStampsTimestamp(t *testing.T) {
	c := newTestChain(t, 1)
	b := c.AddLog(Entry{"msg": "no ts"})
	if b == nil {
		t.Fatalf("block not sealed")
	}
	if _, ok := b.Logs[0]["timestamp"]; !ok {
		t.Fatalf("timestamp not stamped on entry")
	}

	b2 := c.AddLog(Entry{"msg": "has ts", "timestamp": "2024-01-01T00:00:00Z"})
	if got := b2.Logs[0]["timestamp"]; got != "2024-01-01T00:00:00Z" {
		t.Fatalf("existing timestamp overwritten: %v", got)
	}
}

func TestBlocksLinkByHash(t *testing.T) {
	c := newTestChain(t, 2)
	sealed := fill(c, 6)
	if len(sealed) != 3 {
		t.Fatalf("sealed %d blocks, want 3", len(sealed))
	}
	for i := 1; i < len(sealed); i++ {
		if sealed[i].PreviousHash == nil || *sealed[i].PreviousHash != sealed[i-1].Hash() {
			t.Fatalf("block %d not linked to predecessor", i)
		}
	}
	if !c.VerifyChain() {
		t.Fatalf("freshly built chain does not verify")
	}
}

func TestProofOfWorkHolds(t *testing.T) {
	c := newTestChain(t, 1)
	b := c.AddLog(Entry{"msg": "pow"})
	if b.Hash()[0] != '0' {
		t.Fatalf("sealed block hash %q does not satisfy difficulty", b.Hash())
	}
	if !b.satisfiesProof(1) {
		t.Fatalf("proof predicate rejects sealed block")
	}
}

func TestVerifyChainDetectsMutatedEntry(t *testing.T) {
	c := newTestChain(t, 2)
	fill(c, 4) // seals B1, B2
	blocks := c.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("want 2 sealed blocks, got %d", len(blocks))
	}
	// Mutate an entry inside the first block after sealing. The stored
	// Merkle tree no longer reproduces from the logs.
	blocks[0].Logs[1]["msg"] = "rewritten history"
	if c.VerifyChain() {
		t.Fatalf("mutated entry not detected")
	}
}

func TestVerifyChainDetectsBrokenLink(t *testing.T) {
	c := newTestChain(t, 2)
	fill(c, 4)
	bad := "deadbeef"
	c.Blocks()[1].PreviousHash = &bad
	if c.VerifyChain() {
		t.Fatalf("broken link not detected")
	}
}

func TestVerifyLog(t *testing.T) {
	c := newTestChain(t, 3)
	fill(c, 3)
	for i := 0; i < 3; i++ {
		if !c.VerifyLog(0, i) {
			t.Fatalf("entry %d does not verify after sealing", i)
		}
	}
	if c.VerifyLog(0, 3) {
		t.Fatalf("out-of-range log index verified")
	}
	if c.VerifyLog(1, 0) {
		t.Fatalf("out-of-range block index verified")
	}
	if c.VerifyLog(-1, 0) || c.VerifyLog(0, -1) {
		t.Fatalf("negative index verified")
	}
}

func TestVerifyLogOddLeafCount(t *testing.T) {
	c := newTestChain(t, 3)
	c.AddLog(Entry{"n": 1})
	c.AddLog(Entry{"n": 2})
	b := c.AddLog(Entry{"n": 3})
	if b == nil {
		t.Fatalf("block not sealed")
	}
	// 3 entries pad to 4 leaves; all three originals must still verify.
	if len(b.MerkleTree) != 7 {
		t.Fatalf("tree length = %d, want 7", len(b.MerkleTree))
	}
	for i := 0; i < 3; i++ {
		if !c.VerifyLog(0, i) {
			t.Fatalf("entry %d does not verify with padded tree", i)
		}
	}
}

func TestMerkleRootIsFirstTreeElement(t *testing.T) {
	c := newTestChain(t, 2)
	b := fill(c, 2)[0]
	if b.MerkleRoot != b.MerkleTree[0] {
		t.Fatalf("merkle root is not the tree's first element")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	c := newTestChain(t, 2)
	fill(c, 5) // 2 sealed blocks + 1 pending entry
	path := filepath.Join(t.TempDir(), "chain.json")
	if err := c.ExportChain(path); err != nil {
		t.Fatalf("export: %v", err)
	}

	fresh := newTestChain(t, 2)
	if !fresh.ImportChain(path) {
		t.Fatalf("import reported invalid chain")
	}
	if got := len(fresh.Blocks()); got != 2 {
		t.Fatalf("imported %d blocks, want 2", got)
	}
	if fresh.PendingLen() != 1 {
		t.Fatalf("pending block not restored: %d entries", fresh.PendingLen())
	}
	if fresh.PreviousHash() != c.PreviousHash() {
		t.Fatalf("previous hash not restored")
	}
	if !fresh.VerifyChain() {
		t.Fatalf("imported chain does not verify")
	}
	// The restored pending block keeps accumulating where it left off.
	if b := fresh.AddLog(Entry{"seq": 5, "msg": "entry"}); b == nil {
		t.Fatalf("restored pending block did not seal at chain size")
	}
}

func TestImportRejectsMalformedInput(t *testing.T) {
	c := newTestChain(t, 2)
	if c.ImportChain(filepath.Join(t.TempDir(), "missing.json")) {
		t.Fatalf("import of missing file succeeded")
	}

	path := filepath.Join(t.TempDir(), "garbage.json")
	writeFile(t, path, "{not json")
	if c.ImportChain(path) {
		t.Fatalf("import of malformed file succeeded")
	}
}

func TestImportDetectsTampering(t *testing.T) {
	c := newTestChain(t, 2)
	fill(c, 4)
	path := filepath.Join(t.TempDir(), "chain.json")
	if err := c.ExportChain(path); err != nil {
		t.Fatalf("export: %v", err)
	}

	tampered := c.Blocks()
	tampered[0].Logs[0]["msg"] = "edited on disk"
	if err := c.ExportChain(path); err != nil {
		t.Fatalf("re-export: %v", err)
	}
	fresh := newTestChain(t, 2)
	if fresh.ImportChain(path) {
		t.Fatalf("tampered snapshot imported as valid")
	}
}

func TestRotateKeepsNewestBlocks(t *testing.T) {
	c := newTestChain(t, 1)
	fill(c, 5)
	if dropped := c.Rotate(2); dropped != 3 {
		t.Fatalf("dropped %d blocks, want 3", dropped)
	}
	if got := len(c.Blocks()); got != 2 {
		t.Fatalf("kept %d blocks, want 2", got)
	}
	// The oldest surviving block becomes the linkage-exempt head.
	if !c.VerifyChain() {
		t.Fatalf("rotated chain does not verify")
	}
	if c.Rotate(10) != 0 {
		t.Fatalf("rotate dropped blocks it should have kept")
	}
}
