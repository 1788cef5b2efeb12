package archive

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Record encoding: varint payloadLen | payload | xxhash64(payload)

func encodeRecord(payload []byte) []byte {
	out := make([]byte, 0, 10+len(payload)+8)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(len(payload)))
	out = append(out, tmp[:n]...)
	out = append(out, payload...)

	var sum [8]byte
	binary.BigEndian.PutUint64(sum[:], xxhash.Sum64(payload))
	return append(out, sum[:]...)
}

func decodeRecord(b []byte) ([]byte, bool) {
	if len(b) < 1+8 {
		return nil, false
	}
	plen, n := binary.Uvarint(b)
	if n <= 0 {
		return nil, false
	}
	if n+int(plen)+8 != len(b) {
		return nil, false
	}
	payload := b[n : n+int(plen)]
	expect := binary.BigEndian.Uint64(b[len(b)-8:])
	if xxhash.Sum64(payload) != expect {
		return nil, false
	}
	return append([]byte(nil), payload...), true
}
