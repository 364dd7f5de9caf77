package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fanous-live/errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argonParams are encoded next to every hash so older hashes keep
// verifying after the defaults change.
type argonParams struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLength  int
	keyLength   uint32
}

var defaultParams = argonParams{
	memory:      64 * 1024,
	iterations:  3,
	parallelism: 2,
	saltLength:  16,
	keyLength:   32,
}

// storedHash is a decoded "$argon2id$v=..$m=..,t=..,p=..$salt$key" string.
type storedHash struct {
	params argonParams
	salt   []byte
	key    []byte
}

func (h storedHash) String() string {
	encoding := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.memory, h.params.iterations, h.params.parallelism,
		encoding.EncodeToString(h.salt), encoding.EncodeToString(h.key))
}

func derive(password string, salt []byte, p argonParams) []byte {
	return argon2.IDKey([]byte(password), salt, p.iterations, p.memory, p.parallelism, p.keyLength)
}

// HashPassword returns the encoded Argon2id hash of password with a fresh salt.
func HashPassword(password string) (string, error) {
	salt := make([]byte, defaultParams.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	return storedHash{
		params: defaultParams,
		salt:   salt,
		key:    derive(password, salt, defaultParams),
	}.String(), nil
}

// ComparePassword reports whether password matches encodedHash.
// A hash that cannot be decoded is an error, a mismatch is not.
func ComparePassword(password, encodedHash string) (bool, error) {
	stored, err := parseHash(encodedHash)
	if err != nil {
		return false, err
	}
	candidate := derive(password, stored.salt, stored.params)
	return subtle.ConstantTimeCompare(stored.key, candidate) == 1, nil
}

func parseHash(encoded string) (storedHash, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" {
		return storedHash{}, fmt.Errorf("%w: expected 6 fields", errors.ErrMalformedHash)
	}
	if fields[1] != "argon2id" {
		return storedHash{}, fmt.Errorf("%w: algorithm %q", errors.ErrMalformedHash, fields[1])
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return storedHash{}, fmt.Errorf("%w: version %q", errors.ErrMalformedHash, fields[2])
	}

	var h storedHash
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d",
		&h.params.memory, &h.params.iterations, &h.params.parallelism); err != nil {
		return storedHash{}, fmt.Errorf("%w: parameters %q", errors.ErrMalformedHash, fields[3])
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(fields[4]); err != nil {
		return storedHash{}, fmt.Errorf("%w: salt: %v", errors.ErrMalformedHash, err)
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(fields[5]); err != nil || len(h.key) == 0 {
		return storedHash{}, fmt.Errorf("%w: key", errors.ErrMalformedHash)
	}
	h.params.saltLength = len(h.salt)
	h.params.keyLength = uint32(len(h.key))
	return h, nil
}
