package types

import "strconv"

// canonSeg encodes a single canonical-serialization field as a netstring:
// its decimal length, a colon, then the field itself. Every field that
// contributes to a hash preimage in this package is first reduced to a
// lowercase hex string (bytes) or a plain decimal string (numbers),
// then wrapped with canonSeg before concatenation. This makes the preimage
// unambiguous regardless of what any individual field contains — no
// delimiter collision is possible because the reader always knows exactly
// how many bytes of payload follow the length prefix.
//
// This replaces a language-specific repr() with an explicit canonical
// serialization: sorted/fixed field order, hex bytes, fixed numeric form,
// documented here rather than left implicit.
func canonSeg(s string) string {
	return strconv.Itoa(len(s)) + ":" + s
}

// canonUint encodes n as a fixed-form decimal string segment.
func canonUint(n uint64) string {
	return canonSeg(strconv.FormatUint(n, 10))
}

// canonInt encodes n as a fixed-form decimal string segment.
func canonInt(n int64) string {
	return canonSeg(strconv.FormatInt(n, 10))
}
