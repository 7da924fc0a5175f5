package util

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
)

// BytesMD5 returns the hex md5 of all parts. Each part is prefixed with its
// length, so moving bytes between adjacent parts changes the hash.
func BytesMD5(parts ...[]byte) string {
	hash := md5.New()
	for _, p := range parts {
		_ = binary.Write(hash, binary.BigEndian, uint64(len(p)))
		hash.Write(p)
	}
	return hex.EncodeToString(hash.Sum(nil))
}
