package chain

import (
	"sync"
	"time"

	logpkg "github.com/kireeti123/skyarclog/pkg/log"
)

const (
	defaultChainSize  = 100
	defaultDifficulty = 1
)

// SealHook observes sealed blocks, e.g. to persist them or emit metrics.
// Hooks run synchronously inside AddLog; implementations must not call back
// into the chain.
type SealHook interface {
	BlockSealed(index int, block *Block)
}

// Options configures a Chain. Zero fields fall back to defaults.
type Options struct {
	// ChainSize is the number of entries per sealed block.
	ChainSize int
	// Difficulty is the number of leading zero characters the block hash
	// must have. Difficulties above a few characters make sealing costly;
	// the default of 1 keeps AddLog's worst case to a handful of rehashes.
	Difficulty int
	// SealHook, when set, is invoked for every sealed block.
	SealHook SealHook
	Logger   logpkg.Logger
}

// Chain buffers entries into blocks and links the sealed blocks by hash.
type Chain struct {
	chainSize  int
	difficulty int
	hook       SealHook
	logger     logpkg.Logger

	mu           sync.Mutex
	currentBlock []Entry
	blocks       []*Block
	previousHash *string
}

// New creates an empty Chain.
func New(opts Options) *Chain {
	if opts.ChainSize <= 0 {
		opts.ChainSize = defaultChainSize
	}
	if opts.Difficulty <= 0 {
		opts.Difficulty = defaultDifficulty
	}
	if opts.Logger == nil {
		opts.Logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	return &Chain{
		chainSize:  opts.ChainSize,
		difficulty: opts.Difficulty,
		hook:       opts.SealHook,
		logger:     opts.Logger.WithComponent("chain"),
	}
}

// AddLog stamps the entry's timestamp if absent and appends it to the pending
// block. When the pending block reaches chainSize it is sealed synchronously,
// including the proof-of-work search, and the sealed block is returned;
// otherwise AddLog returns nil. Failures are swallowed: an entry that cannot
// be normalized is dropped with a log line, never an error to the caller.
func (c *Chain) AddLog(entry Entry) *Block {
	if entry == nil {
		return nil
	}
	if _, ok := entry["timestamp"]; !ok {
		entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	}
	normalized, err := normalizeEntry(entry)
	if err != nil {
		c.logger.Error("dropping unhashable entry", logpkg.Err(err))
		return nil
	}

	c.mu.Lock()
	c.currentBlock = append(c.currentBlock, normalized)
	if len(c.currentBlock) < c.chainSize {
		c.mu.Unlock()
		return nil
	}

	start := time.Now()
	block := sealBlock(c.currentBlock, c.previousHash, c.difficulty, start)
	hash := block.Hash()
	c.blocks = append(c.blocks, block)
	c.previousHash = &hash
	c.currentBlock = nil
	index := len(c.blocks) - 1
	hook := c.hook
	c.mu.Unlock()

	c.logger.Debug("sealed block",
		logpkg.Int("index", index),
		logpkg.Int("nonce", block.Nonce),
		logpkg.Dur("elapsed", time.Since(start)))
	if hook != nil {
		hook.BlockSealed(index, block)
	}
	return block
}

// VerifyChain reports whether every sealed block still satisfies its proof
// predicate, reproduces its stored Merkle tree, and links to the hash of the
// block before it. The first block's previous hash is exempt from the
// linkage check. Verification stops at the first mismatch.
func (c *Chain) VerifyChain() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return verifyBlocks(c.blocks, c.difficulty)
}

func verifyBlocks(blocks []*Block, difficulty int) bool {
	for i, b := range blocks {
		if !b.satisfiesProof(difficulty) {
			return false
		}
		if !merkleTreeEqual(buildMerkleTree(b.Logs), b.MerkleTree) {
			return false
		}
		if i > 0 {
			prev := blocks[i-1].Hash()
			if b.PreviousHash == nil || *b.PreviousHash != prev {
				return false
			}
		}
	}
	return true
}

// VerifyLog reports whether the entry at (blockIndex, logIndex) hashes to one
// of the leaf-level elements of its block's stored tree. Out-of-range indices
// report false.
func (c *Chain) VerifyLog(blockIndex, logIndex int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if blockIndex < 0 || blockIndex >= len(c.blocks) {
		return false
	}
	b := c.blocks[blockIndex]
	if logIndex < 0 || logIndex >= len(b.Logs) {
		return false
	}
	leafCount := len(b.Logs)
	if leafCount > len(b.MerkleTree) {
		return false
	}
	want := HashValue(b.Logs[logIndex])
	for _, leaf := range b.MerkleTree[:leafCount] {
		if leaf == want {
			return true
		}
	}
	return false
}

// Blocks returns a copy of the sealed block slice. The blocks themselves are
// shared and must be treated as read-only.
func (c *Chain) Blocks() []*Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// PendingLen returns the number of entries buffered in the pending block.
func (c *Chain) PendingLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.currentBlock)
}

// PreviousHash returns the hash of the most recently sealed block, or "" when
// no block has been sealed.
func (c *Chain) PreviousHash() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.previousHash == nil {
		return ""
	}
	return *c.previousHash
}

// Rotate drops the oldest sealed blocks, keeping the newest keep, and returns
// how many were dropped. It exists for the opt-in archive policy: callers
// must have persisted the dropped range elsewhere, since VerifyChain only
// covers blocks still held in memory.
func (c *Chain) Rotate(keep int) int {
	if keep < 0 {
		keep = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.blocks) <= keep {
		return 0
	}
	dropped := len(c.blocks) - keep
	remaining := make([]*Block, keep)
	copy(remaining, c.blocks[dropped:])
	c.blocks = remaining
	return dropped
}
