package mailstore

import (
	"crypto/rand"
)

const idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// newID mints a "msg_" prefix plus 16 cryptographically random base62
// characters (spec §3 MailMessage essential attributes). crypto/rand is
// used directly rather than google/uuid because the contract calls for
// a short printable id with a custom alphabet, not a 36-char UUID.
func newID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, 16)
	for i, b := range buf {
		out[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return "msg_" + string(out), nil
}
