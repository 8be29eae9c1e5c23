package wordpress

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
)

// Sealer encrypts integration secrets at rest with an age X25519 identity.
type Sealer struct {
	identity *age.X25519Identity
}

// GenerateIdentity returns a new AGE-SECRET-KEY-1... identity string.
func GenerateIdentity() (string, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", fmt.Errorf("generating age identity: %w", err)
	}
	return identity.String(), nil
}

func NewSealer(identity string) (*Sealer, error) {
	parsed, err := age.ParseX25519Identity(strings.TrimSpace(identity))
	if err != nil {
		return nil, fmt.Errorf("parsing age identity: %w", err)
	}
	return &Sealer{identity: parsed}, nil
}

// Recipient is the public half, safe to log or share.
func (s *Sealer) Recipient() string {
	return s.identity.Recipient().String()
}

// Seal encrypts plaintext and returns it base64 encoded.
func (s *Sealer) Seal(plaintext string) (string, error) {
	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, s.identity.Recipient())
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := io.WriteString(writer, plaintext); err != nil {
		return "", fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalizing age encryption: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext.Bytes()), nil
}

func (s *Sealer) Open(sealed string) (string, error) {
	if strings.TrimSpace(sealed) == "" {
		return "", errors.New("sealed value is empty")
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decoding base64 ciphertext: %w", err)
	}
	reader, err := age.Decrypt(bytes.NewReader(raw), s.identity)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("reading decrypted plaintext: %w", err)
	}
	return string(plaintext), nil
}
