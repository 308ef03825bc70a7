package document

import (
	"fmt"
	"unicode/utf16"
)

// Progress files wrap their JSON payload in little-endian UTF-16, two bytes
// per code unit. The format is inherited from the web original, which
// serialized strings through Uint16Array buffers; keeping it means old
// progress files remain loadable.

// EncodeUTF16 converts a UTF-8 string to its UTF-16LE byte representation.
func EncodeUTF16(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, len(units)*2)
	for i, u := range units {
		out[i*2] = byte(u)
		out[i*2+1] = byte(u >> 8)
	}
	return out
}

// DecodeUTF16 converts UTF-16LE bytes back to a UTF-8 string. An odd byte
// count means the payload is not UTF-16 at all.
func DecodeUTF16(data []byte) (string, error) {
	if len(data)%2 != 0 {
		return "", fmt.Errorf("document: utf-16 payload has odd length %d", len(data))
	}
	units := make([]uint16, len(data)/2)
	for i := range units {
		units[i] = uint16(data[i*2]) | uint16(data[i*2+1])<<8
	}
	return string(utf16.Decode(units)), nil
}
