package chain

import (
	"encoding/json"
	"os"

	logpkg "github.com/kireeti123/skyarclog/pkg/log"
)

// snapshot is the persisted chain form. Keys are stable: snapshots written by
// any version of the framework keep importing.
type snapshot struct {
	Blocks       []*Block `json:"blocks"`
	CurrentBlock []Entry  `json:"current_block"`
	PreviousHash *string  `json:"previous_hash"`
}

// ExportChain writes a self-contained snapshot of the chain, including the
// pending block, to path. It runs outside the hot path and therefore may
// surface I/O errors.
func (c *Chain) ExportChain(path string) error {
	c.mu.Lock()
	snap := snapshot{
		Blocks:       append([]*Block{}, c.blocks...),
		CurrentBlock: append([]Entry{}, c.currentBlock...),
		PreviousHash: c.previousHash,
	}
	c.mu.Unlock()

	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// ImportChain replaces the chain state with the snapshot at path, then
// re-verifies the whole chain and reports the result. Unreadable or
// malformed input reports false without touching the current state; a
// snapshot that loads but fails verification replaces the state and reports
// false, leaving the loaded chain inspectable.
func (c *Chain) ImportChain(path string) bool {
	b, err := os.ReadFile(path)
	if err != nil {
		c.logger.Warn("chain import failed", logpkg.Str("path", path), logpkg.Err(err))
		return false
	}
	var snap snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		c.logger.Warn("chain import rejected", logpkg.Str("path", path), logpkg.Err(err))
		return false
	}
	for _, blk := range snap.Blocks {
		if blk == nil {
			c.logger.Warn("chain import rejected", logpkg.Str("path", path), logpkg.Str("reason", "null block"))
			return false
		}
	}

	c.mu.Lock()
	c.blocks = snap.Blocks
	c.currentBlock = snap.CurrentBlock
	c.previousHash = snap.PreviousHash
	ok := verifyBlocks(c.blocks, c.difficulty)
	c.mu.Unlock()
	return ok
}
