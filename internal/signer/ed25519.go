package signer

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"lpdeposit/internal/model"
)

// Ed25519Signer signs deposit transactions with a single account key.
type Ed25519Signer struct {
	key     ed25519.PrivateKey
	network string
}

// NewEd25519Signer loads a key from a hex-encoded 32-byte seed or an S... secret seed.
func NewEd25519Signer(secret, networkPassphrase string) (*Ed25519Signer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("signer: secret is required")
	}
	if networkPassphrase == "" {
		return nil, fmt.Errorf("signer: network passphrase is required")
	}

	var seed []byte
	var err error
	if strings.HasPrefix(secret, "S") {
		seed, err = decodeStrkey(versionSeed, secret)
	} else {
		seed, err = hex.DecodeString(strings.TrimPrefix(secret, "0x"))
	}
	if err != nil {
		return nil, fmt.Errorf("signer: parse secret: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signer: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Ed25519Signer{key: ed25519.NewKeyFromSeed(seed), network: networkPassphrase}, nil
}

// AccountID returns the G... address of the signing key.
func (s *Ed25519Signer) AccountID() string {
	return encodeStrkey(versionAccountID, s.publicKey())
}

// Sign encodes tx and returns the signed envelope. The signature covers
// sha256(sha256(passphrase) || encoded tx), where the encoding is the
// canonical JSON of tx, not XDR.
func (s *Ed25519Signer) Sign(ctx context.Context, tx model.UnsignedTx) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if tx.Source != s.AccountID() {
		return nil, fmt.Errorf("signer: transaction source %s is not %s", tx.Source, s.AccountID())
	}
	if tx.Network != "" && tx.Network != s.network {
		return nil, fmt.Errorf("signer: transaction built for network %q", tx.Network)
	}

	encoded, err := tx.Encode()
	if err != nil {
		return nil, err
	}
	sig := ed25519.Sign(s.key, s.payload(encoded))

	pub := s.publicKey()
	envelope := model.SignedEnvelope{
		Tx: encoded,
		Signatures: []model.Signature{{
			Hint:      hex.EncodeToString(pub[len(pub)-4:]),
			Signature: base64.StdEncoding.EncodeToString(sig),
		}},
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("signer: encode envelope: %w", err)
	}
	return data, nil
}

// Verify checks an envelope produced by Sign.
func (s *Ed25519Signer) Verify(envelope []byte) error {
	var env model.SignedEnvelope
	if err := json.Unmarshal(envelope, &env); err != nil {
		return fmt.Errorf("signer: parse envelope: %w", err)
	}
	if len(env.Signatures) == 0 {
		return fmt.Errorf("signer: envelope has no signatures")
	}
	sig, err := base64.StdEncoding.DecodeString(env.Signatures[0].Signature)
	if err != nil {
		return fmt.Errorf("signer: parse signature: %w", err)
	}
	if !ed25519.Verify(s.publicKey(), s.payload(env.Tx), sig) {
		return fmt.Errorf("signer: signature mismatch")
	}
	return nil
}

func (s *Ed25519Signer) publicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

func (s *Ed25519Signer) payload(encoded []byte) []byte {
	networkID := sha256.Sum256([]byte(s.network))
	h := sha256.New()
	h.Write(networkID[:])
	h.Write(encoded)
	return h.Sum(nil)
}
