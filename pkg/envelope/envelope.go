// Package envelope implements the encrypted container shared by progress
// and final documents: salt(16) || iv(12) || AES-256-GCM ciphertext, with
// the key derived from a passphrase via PBKDF2-SHA512.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/keepsake-archive/keepsake/pkg/document"
)

const (
	saltSize = 16
	ivSize   = 12
	keySize  = 32 // AES-256
	// kdfIterations matches the original web implementation; existing
	// archives will not decrypt if it changes.
	kdfIterations = 150_000
)

var (
	// ErrDecryptFailed covers every decryption failure: wrong passphrase,
	// corrupted ciphertext, truncated envelope. The causes are deliberately
	// indistinguishable so the error can't be used as an oracle.
	ErrDecryptFailed = errors.New("envelope: decryption failed")

	// ErrProgressFile means a decrypted "final" envelope turned out to hold
	// a progress document - the user selected the wrong file.
	ErrProgressFile = errors.New("envelope: file contains a progress document, not a final archive")
)

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, kdfIterations, keySize, sha512.New)
}

// Seal encrypts plaintext under the passphrase and returns the full
// envelope. The salt and nonce are freshly random per call.
func Seal(plaintext []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("envelope: empty passphrase")
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("envelope: generate salt: %w", err)
	}
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("envelope: generate nonce: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("envelope: init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("envelope: init gcm: %w", err)
	}

	out := make([]byte, 0, saltSize+ivSize+len(plaintext)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, iv...)
	out = gcm.Seal(out, iv, plaintext, nil)
	return out, nil
}

// Open authenticates and decrypts an envelope. Every failure mode maps to
// ErrDecryptFailed.
func Open(data []byte, passphrase string) ([]byte, error) {
	if len(data) < saltSize+ivSize {
		return nil, ErrDecryptFailed
	}
	salt := data[:saltSize]
	iv := data[saltSize : saltSize+ivSize]
	ciphertext := data[saltSize+ivSize:]

	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, ErrDecryptFailed
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

// OpenFinal decrypts an envelope that is expected to hold a final rendered
// artifact. Because progress and final documents share the envelope format,
// the plaintext is sniffed after authentication: if it parses as a UTF-16
// instance document the user picked a progress file by mistake, and the
// caller gets ErrProgressFile instead of a bogus artifact.
func OpenFinal(data []byte, passphrase string) ([]byte, error) {
	plaintext, err := Open(data, passphrase)
	if err != nil {
		return nil, err
	}
	if text, derr := document.DecodeUTF16(plaintext); derr == nil && document.Sniff([]byte(text)) {
		return nil, ErrProgressFile
	}
	return plaintext, nil
}

// Checksum returns the hex SHA-256 digest of data. It is surfaced to the
// user for manual integrity comparison and plays no part in the
// authenticated envelope.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
