package clients

import (
	"crypto/ecdsa"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// WalletSigner signs API key requests with a local secp256k1 key.
type WalletSigner struct {
	key     *ecdsa.PrivateKey
	address string
	now     func() time.Time
}

// NewWalletSigner loads a hex private key, with or without the 0x prefix.
func NewWalletSigner(privateKeyHex string) (*WalletSigner, error) {
	key := strings.TrimSpace(privateKeyHex)
	if len(key) >= 2 && (key[:2] == "0x" || key[:2] == "0X") {
		key = key[2:]
	}

	privateKey, err := crypto.HexToECDSA(key)
	if err != nil {
		return nil, errors.Wrap(err, "parse wallet private key")
	}

	pub, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("error casting public key to ECDSA")
	}

	return &WalletSigner{
		key:     privateKey,
		address: crypto.PubkeyToAddress(*pub).Hex(),
		now:     time.Now,
	}, nil
}

// Address returns the checksummed account address.
func (s *WalletSigner) Address() string { return s.address }

// SignNonce builds the {"nonce":"<unix-ms>"} message and signs it as an
// EIP-191 personal message. The returned signature is 0x-hex with V in {27,28}.
func (s *WalletSigner) SignNonce() (signature, message string, err error) {
	payload, err := json.Marshal(struct {
		Nonce string `json:"nonce"`
	}{Nonce: strconv.FormatInt(s.now().UnixMilli(), 10)})
	if err != nil {
		return "", "", errors.Wrap(err, "marshal nonce message")
	}
	message = string(payload)

	signature, err = s.Sign(message)
	if err != nil {
		return "", "", err
	}
	return signature, message, nil
}

// Sign signs an arbitrary personal message.
func (s *WalletSigner) Sign(message string) (string, error) {
	hash := accounts.TextHash([]byte(message))
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return "", errors.Wrap(err, "sign message")
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}
