package types

import (
	"encoding/hex"
	"encoding/json"

	"github.com/tos-network/chainmsg/crypto"
)

// MiningReward is the amount a coinbase transaction is required to carry.
// This is consensus-critical and fixed, not a local policy knob.
const MiningReward = 1

// Transaction is a signed record of a value transfer or an opaque
// (possibly encrypted) message from sender to recipient. A nil Sender marks
// a coinbase transaction, which skips signature and balance checks.
type Transaction struct {
	Sender          *string `json:"sender"`
	Recipient       string  `json:"recipient"`
	Amount          uint64  `json:"amount"`
	Content         []byte  `json:"content"`
	SignerPublicKey []byte  `json:"signer_public_key"`
	Signature       []byte  `json:"signature"`
}

// txWire is the transaction's JSON wire shape: hex-or-null byte fields.
type txWire struct {
	Sender          *string `json:"sender"`
	Recipient       string  `json:"recipient"`
	Amount          uint64  `json:"amount"`
	Content         string  `json:"content"`
	SignerPublicKey *string `json:"signer_public_key"`
	Signature       *string `json:"signature"`
}

// New builds an unsigned transaction. Pass a nil signerPub and sender for a
// coinbase transaction.
func New(sender *string, recipient string, amount uint64, content, signerPub []byte) *Transaction {
	return &Transaction{
		Sender:          sender,
		Recipient:       recipient,
		Amount:          amount,
		Content:         content,
		SignerPublicKey: signerPub,
	}
}

// NewCoinbase builds the reward transaction a miner appends to a block it
// is about to mine.
func NewCoinbase(minerAddress string) *Transaction {
	return &Transaction{
		Sender:    nil,
		Recipient: minerAddress,
		Amount:    MiningReward,
	}
}

// IsCoinbase reports whether this transaction has no sender.
func (t *Transaction) IsCoinbase() bool {
	return t.Sender == nil
}

// canonicalPreimage returns the deterministic byte sequence this
// transaction's hash is computed over. The signature is always excluded, so
// Hash does not depend on which signature bytes the transaction carries.
func (t *Transaction) canonicalPreimage() []byte {
	sender := ""
	if t.Sender != nil {
		sender = *t.Sender
	}
	signerPub := ""
	if t.SignerPublicKey != nil {
		signerPub = hex.EncodeToString(t.SignerPublicKey)
	}
	s := canonSeg(sender) +
		canonSeg(t.Recipient) +
		canonUint(t.Amount) +
		canonSeg(hex.EncodeToString(t.Content)) +
		canonSeg(signerPub)
	return []byte(s)
}

// Hash returns the lowercase hex SHA-256 digest of the transaction's
// canonical preimage (signature excluded).
func (t *Transaction) Hash() string {
	return crypto.HashHex(t.canonicalPreimage())
}

// Sign signs the transaction's hash with priv, setting Signature.
func (t *Transaction) Sign(priv *crypto.PrivateKey) {
	digest := crypto.Hash(t.canonicalPreimage())
	t.Signature = priv.Sign(digest[:])
}

// Verify reports whether Signature is a valid signature by
// SignerPublicKey over Hash(). It is total and never panics on malformed
// input. Coinbase transactions are always considered verified (no
// signature is expected).
func (t *Transaction) Verify() bool {
	if t.IsCoinbase() {
		return true
	}
	digest := crypto.Hash(t.canonicalPreimage())
	return crypto.Verify(t.SignerPublicKey, digest[:], t.Signature)
}

// Validate checks the full validity predicate for a non-coinbase
// transaction: signature verifies, sender is derived from
// signer_public_key by the address rule, and recipient is present.
// For a coinbase transaction only the recipient is checked here; its
// reward amount is checked by validator.ValidateBlock.
func (t *Transaction) Validate() error {
	if t.Recipient == "" {
		return ErrMissingRecipient
	}
	if t.IsCoinbase() {
		return nil
	}
	if !t.Verify() {
		return ErrBadSignature
	}
	if crypto.AddressOf(t.SignerPublicKey) != *t.Sender {
		return ErrAddressMismatch
	}
	return nil
}

// Serialize encodes the transaction to its JSON wire form.
func (t *Transaction) Serialize() ([]byte, error) {
	w := txWire{
		Sender:    t.Sender,
		Recipient: t.Recipient,
		Amount:    t.Amount,
		Content:   hex.EncodeToString(t.Content),
	}
	if t.SignerPublicKey != nil {
		s := hex.EncodeToString(t.SignerPublicKey)
		w.SignerPublicKey = &s
	}
	if t.Signature != nil {
		s := hex.EncodeToString(t.Signature)
		w.Signature = &s
	}
	return json.Marshal(w)
}

// ParseTransaction decodes a transaction from its JSON wire form, failing
// with ErrMalformedTx when the JSON does not decode into the wire shape, a
// byte field is not valid hex, or a transaction with a sender lacks its
// signer public key or signature. The lengths of the key and signature are
// not checked here; a malformed key or signature fails later in Verify.
func ParseTransaction(data []byte) (*Transaction, error) {
	var w txWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, ErrMalformedTx
	}
	content, err := hex.DecodeString(w.Content)
	if err != nil {
		return nil, ErrMalformedTx
	}
	t := &Transaction{
		Sender:    w.Sender,
		Recipient: w.Recipient,
		Amount:    w.Amount,
		Content:   content,
	}
	if w.SignerPublicKey != nil {
		pub, err := hex.DecodeString(*w.SignerPublicKey)
		if err != nil {
			return nil, ErrMalformedTx
		}
		t.SignerPublicKey = pub
	}
	if w.Signature != nil {
		sig, err := hex.DecodeString(*w.Signature)
		if err != nil {
			return nil, ErrMalformedTx
		}
		t.Signature = sig
	}
	if t.Sender != nil && (t.SignerPublicKey == nil || t.Signature == nil) {
		return nil, ErrMalformedTx
	}
	return t, nil
}
