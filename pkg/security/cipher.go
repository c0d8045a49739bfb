package security

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	cipherVersion  byte = 1
	cipherSaltSize      = 16
	minSecretSize       = 32
)

var cipherInfo = []byte("easyforms/token-cipher")

var (
	ErrDecryption   = errors.New("unable to decrypt message")
	ErrSecretLength = fmt.Errorf("cipher secret must be at least %d characters long", minSecretSize)
)

// Cipher encrypts and decrypts short string payloads with a single server
// secret. Every message is sealed under its own key derived from the secret
// and a random salt, so encrypting the same plaintext twice gives different
// ciphertexts.
//
// Ciphertext layout before base64: version | salt | nonce | sealed box.
type Cipher struct {
	secret []byte
}

func NewCipher(secret string) (*Cipher, error) {
	if len(secret) < minSecretSize {
		return nil, ErrSecretLength
	}

	return &Cipher{secret: []byte(secret)}, nil
}

func (c *Cipher) Encrypt(plaintext string) (string, error) {
	salt, err := genRandByt(cipherSaltSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate salt, %w", err)
	}

	aead, err := c.aead(salt)
	if err != nil {
		return "", err
	}

	nonce, err := genRandByt(uint32(aead.NonceSize()))
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce, %w", err)
	}

	header := append([]byte{cipherVersion}, salt...)

	out := make([]byte, 0, len(header)+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, header...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, []byte(plaintext), header)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Any malformed, truncated or tampered input and
// any input sealed with another secret fails with ErrDecryption.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.Strict().DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: malformed encoding", ErrDecryption)
	}

	headerSize := 1 + cipherSaltSize
	if len(raw) < headerSize+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return "", fmt.Errorf("%w: message too short", ErrDecryption)
	}

	if raw[0] != cipherVersion {
		return "", fmt.Errorf("%w: unknown version %d", ErrDecryption, raw[0])
	}

	header := raw[:headerSize]
	nonce := raw[headerSize : headerSize+chacha20poly1305.NonceSizeX]
	sealed := raw[headerSize+chacha20poly1305.NonceSizeX:]

	aead, err := c.aead(header[1:])
	if err != nil {
		return "", err
	}

	plain, err := aead.Open(nil, nonce, sealed, header)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrDecryption)
	}

	if !utf8.Valid(plain) {
		return "", fmt.Errorf("%w: plaintext is not valid UTF-8", ErrDecryption)
	}

	return string(plain), nil
}

func (c *Cipher) aead(salt []byte) (cipher.AEAD, error) {
	key := make([]byte, chacha20poly1305.KeySize)

	kdf := hkdf.New(sha256.New, c.secret, salt, cipherInfo)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive key, %w", err)
	}

	return chacha20poly1305.NewX(key)
}
