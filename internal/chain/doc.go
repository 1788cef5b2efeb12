// Package chain implements SkyArcLog's tamper-evident validation chain.
//
// # Overview
//
// Log entries accumulate in a pending block; once chainSize entries are
// buffered the block is sealed: a Merkle tree is built over the entries, a
// nonce is searched until the block hash satisfies a cheap leading-zeros
// predicate, and the block is linked to its predecessor by hash. The result
// is a hash chain in which any retroactive edit of a stored entry breaks
// either its block's Merkle tree or the links that follow it.
//
// API surface (internal)
//
//	c := chain.New(chain.Options{ChainSize: 100})
//	if sealed := c.AddLog(chain.Entry{"level": "INFO", "msg": "hi"}); sealed != nil {
//	    // block sealed; archived via the optional SealHook as well
//	}
//	ok := c.VerifyChain()
//	ok = c.VerifyLog(0, 3)
//	_ = c.ExportChain("/tmp/chain.json")
//	ok = c.ImportChain("/tmp/chain.json")
//
// # Hashing
//
// Every hash is SHA-256 over canonical JSON: object keys sorted
// lexicographically at every nesting level, so semantically identical entries
// always hash identically. Entries are normalized through a JSON round trip
// when added, which keeps hashes stable across export and import (all numbers
// become float64 either way).
//
// # Concurrency
//
// A single mutex guards the pending block and sealing; AddLog and the verify
// and snapshot operations may be called from multiple goroutines.
//
// The proof-of-work search is a tamper-cost mechanism, not a security
// primitive: at the default difficulty of one leading zero it terminates in a
// handful of iterations.
package chain
