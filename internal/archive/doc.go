// Package archive persists sealed chain blocks to Pebble.
//
// The in-memory chain grows without bound for the process lifetime; the
// archiver is the opt-in escape hatch. Wired as the chain's SealHook it
// writes every sealed block as a framed record, after which the manager may
// rotate old blocks out of memory. The archive is the source for offline
// snapshot export and verification via the CLI.
//
// # Keyspace
//
//	chain/m            - archive metadata (next block index, 8B BE)
//	chain/b/{idx_be8}  - framed block records, ordered by block index
//
// Records are stored as: varint payloadLen | canonical block JSON |
// xxhash64(payload). The checksum guards against storage-level corruption;
// chain-level tampering is the Merkle tree's job.
package archive
