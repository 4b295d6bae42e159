package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Signer signs API requests with the operator's secp256k1 key. Privileged
// endpoints authenticate by recovering the signing address from an
// EIP-191 personal-sign signature over the request envelope.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key.
func NewSigner(privateKeyHex string) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}
	return &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

// Address returns the Ethereum address derived from the signer's private
// key.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignRequest signs the request envelope for timestamp, method, path, and
// body, returning a hex-encoded 65-byte signature.
func (s *Signer) SignRequest(timestamp int64, method, path, body string) (string, error) {
	digest := requestDigest(timestamp, method, path, body)
	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: signing: %w", err)
	}

	// go-ethereum returns v in {0,1}; wire format uses v in {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// RecoverRequestSigner recovers the address that signed a request
// envelope. The signature is the hex string produced by SignRequest.
func RecoverRequestSigner(timestamp int64, method, path, body, sigHex string) (common.Address, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto/signer: invalid signature hex: %w", err)
	}
	if len(raw) != 65 {
		return common.Address{}, fmt.Errorf("crypto/signer: expected 65-byte signature, got %d", len(raw))
	}

	sig := make([]byte, 65)
	copy(sig, raw)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	digest := requestDigest(timestamp, method, path, body)
	pub, err := ethcrypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto/signer: recover: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// VerifyRequest reports whether sigHex over the request envelope was
// produced by expected, and that the timestamp is within maxSkew of now.
func VerifyRequest(expected common.Address, timestamp int64, method, path, body, sigHex string, maxSkew time.Duration) error {
	skew := time.Since(time.Unix(timestamp, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > maxSkew {
		return fmt.Errorf("crypto/signer: timestamp outside allowed skew %s", maxSkew)
	}

	addr, err := RecoverRequestSigner(timestamp, method, path, body, sigHex)
	if err != nil {
		return err
	}
	if addr != expected {
		return fmt.Errorf("crypto/signer: signature from %s, expected %s", addr.Hex(), expected.Hex())
	}
	return nil
}

// requestDigest hashes the request envelope with the EIP-191
// personal-sign prefix so wallet tooling can produce compatible
// signatures.
func requestDigest(timestamp int64, method, path, body string) []byte {
	message := strconv.FormatInt(timestamp, 10) + method + path + body
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return ethcrypto.Keccak256([]byte(prefixed))
}
