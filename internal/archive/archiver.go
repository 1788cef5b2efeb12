package archive

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/kireeti123/skyarclog/internal/chain"
	pebblestore "github.com/kireeti123/skyarclog/internal/storage/pebble"
	logpkg "github.com/kireeti123/skyarclog/pkg/log"
)

// Archiver persists sealed blocks under monotonically increasing archive
// indices. The archive index is independent of the chain's in-memory block
// index: rotation shifts the latter, never the former.
type Archiver struct {
	db     *pebblestore.DB
	logger logpkg.Logger

	mu   sync.Mutex
	next uint64
}

// NewArchiver opens an archiver over db, resuming the next archive index
// from the metadata key when present.
func NewArchiver(db *pebblestore.DB, logger logpkg.Logger) (*Archiver, error) {
	if db == nil {
		return nil, errors.New("archive: nil db")
	}
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	a := &Archiver{db: db, logger: logger.WithComponent("archive")}

	val, err := db.Get(metaKey())
	switch {
	case err == nil:
		if len(val) != 8 {
			return nil, fmt.Errorf("archive: metadata is %d bytes, want 8", len(val))
		}
		a.next = binary.BigEndian.Uint64(val)
	case errors.Is(err, pebblestore.ErrNotFound):
		// Fresh archive.
	default:
		return nil, fmt.Errorf("archive: read metadata: %w", err)
	}
	return a, nil
}

// NextIndex returns the index the next sealed block will be stored under.
func (a *Archiver) NextIndex() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}

// BlockSealed persists the freshly sealed block. It runs on the seal path,
// so failures are logged and swallowed: a broken archive must not stall the
// chain. The chain block index is accepted for logging only; the stored key
// uses the archiver's own counter.
func (a *Archiver) BlockSealed(index int, block *chain.Block) {
	if block == nil {
		return
	}
	payload, err := json.Marshal(block)
	if err != nil {
		a.logger.Error("block not archived", logpkg.Int("block", index), logpkg.Err(err))
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], a.next+1)

	batch := a.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(blockKey(a.next), encodeRecord(payload), nil); err == nil {
		err = batch.Set(metaKey(), meta[:], nil)
	}
	if err == nil {
		err = a.db.CommitBatch(batch)
	}
	if err != nil {
		a.logger.Error("block not archived",
			logpkg.Int("block", index),
			logpkg.Uint64("archive_index", a.next),
			logpkg.Err(err))
		return
	}
	a.logger.Debug("block archived", logpkg.Uint64("archive_index", a.next))
	a.next++
}

// LoadBlocks reads the archived blocks in [from, to). A zero to loads through
// the end of the archive. Records that fail their checksum or do not decode
// abort the read with an error naming the offending index.
func (a *Archiver) LoadBlocks(from, to uint64) ([]*chain.Block, error) {
	lower := blockKey(from)
	var upper []byte
	if to == 0 {
		_, upper = blockKeyRange()
	} else {
		upper = blockKey(to)
	}

	iter, err := a.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("archive: iterator: %w", err)
	}
	defer iter.Close()

	var blocks []*chain.Block
	for iter.First(); iter.Valid(); iter.Next() {
		idx, ok := parseBlockKey(iter.Key())
		if !ok {
			return nil, fmt.Errorf("archive: unexpected key %q", iter.Key())
		}
		payload, ok := decodeRecord(iter.Value())
		if !ok {
			return nil, fmt.Errorf("archive: corrupt record at index %d", idx)
		}
		var block chain.Block
		if err := json.Unmarshal(payload, &block); err != nil {
			return nil, fmt.Errorf("archive: decode block %d: %w", idx, err)
		}
		blocks = append(blocks, &block)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("archive: scan: %w", err)
	}
	return blocks, nil
}

// ExportSnapshot writes the full archive as a chain snapshot, importable by
// chain.ImportChain. The snapshot carries no pending entries; those live only
// in the process that sealed the blocks.
func (a *Archiver) ExportSnapshot(path string) error {
	blocks, err := a.LoadBlocks(0, 0)
	if err != nil {
		return err
	}
	snap := struct {
		Blocks       []*chain.Block `json:"blocks"`
		CurrentBlock []chain.Entry  `json:"current_block"`
		PreviousHash *string        `json:"previous_hash"`
	}{
		Blocks:       blocks,
		CurrentBlock: []chain.Entry{},
	}
	if len(blocks) > 0 {
		h := blocks[len(blocks)-1].Hash()
		snap.PreviousHash = &h
	}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
