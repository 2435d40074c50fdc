package srp6_test

import "crypto/sha1"

func sha1Sum(b []byte) []byte {
	h := sha1.Sum(b)
	return h[:]
}
