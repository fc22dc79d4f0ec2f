package lib

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// HashPassword computes the challenge response the WPMS login endpoint
// expects: MD5 of the lowercase-hex MD5 of the password concatenated with
// the nonce, as lowercase hex. The double-MD5 is a wire-protocol requirement
// of the remote service, not a choice made here. An empty nonce is valid and
// hashes the inner digest alone; an empty password is a usage error.
func HashPassword(password string, nonce string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("cannot hash an empty password")
	}

	inner := md5.Sum([]byte(password))
	innerHex := hex.EncodeToString(inner[:])

	outer := md5.Sum([]byte(innerHex + nonce))
	return hex.EncodeToString(outer[:]), nil
}
