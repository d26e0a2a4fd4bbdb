package auth

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const loginMessageTTL = 5 * time.Minute

var (
	ErrInvalidAddress      = errors.New("invalid wallet address")
	ErrSignatureMismatch   = errors.New("signature does not match wallet address")
	ErrLoginMessageExpired = errors.New("login message expired")
)

// NormalizeAddress validates an EVM address and returns it lower-cased.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
		return "", ErrInvalidAddress
	}
	return strings.ToLower(address), nil
}

// LoginMessage is the text the wallet signs to open a session.
func LoginMessage(address string, issuedAt int64) string {
	return fmt.Sprintf("Bounty Hunter login\naddress: %s\nissued: %d", strings.ToLower(address), issuedAt)
}

type WalletVerifier struct {
	now func() time.Time
}

func NewWalletVerifier() *WalletVerifier {
	return &WalletVerifier{now: time.Now}
}

// Verify checks an EIP-191 personal_sign signature over LoginMessage and
// returns the normalized address.
func (v *WalletVerifier) Verify(address string, issuedAt int64, signature string) (string, error) {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return "", err
	}

	issued := time.Unix(issuedAt, 0)
	if age := v.now().Sub(issued); age > loginMessageTTL || age < -loginMessageTTL {
		return "", ErrLoginMessageExpired
	}

	recovered, err := RecoverEIP191(LoginMessage(normalized, issuedAt), signature)
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(recovered.Hex(), normalized) {
		return "", ErrSignatureMismatch
	}

	return normalized, nil
}

func RecoverEIP191(message, signature string) (common.Address, error) {
	sigBytes, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(sigBytes) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length: expected 65, got %d", len(sigBytes))
	}

	// v may be 27/28
	if sigBytes[64] >= 27 {
		sigBytes[64] -= 27
	}

	prefixed := "\x19Ethereum Signed Message:\n" + strconv.Itoa(len(message)) + message
	hash := crypto.Keccak256Hash([]byte(prefixed))

	pubKey, err := crypto.SigToPub(hash.Bytes(), sigBytes)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}
