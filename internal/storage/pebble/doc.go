// Package pebblestore provides a thin wrapper around Pebble with fsync
// policy, batches, and a minimal metrics hook. The chain archiver is its only
// consumer; the wrapper stays generic so tests can use it directly.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./archive",
//	    Fsync:   pebblestore.FsyncModeAlways,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	_ = db.Set([]byte("k"), []byte("v"))
//	v, _ := db.Get([]byte("k"))
package pebblestore
