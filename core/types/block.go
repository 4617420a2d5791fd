package types

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/tos-network/chainmsg/crypto"
)

// GenesisPreviousHash is the fixed previous_hash value of block 0.
const GenesisPreviousHash = "0"

// Block is an entry in the chain: an ordered set of transactions bound
// together with the previous block's hash and a proof-of-work nonce.
type Block struct {
	Index        uint64         `json:"index"`
	PreviousHash string         `json:"previous_hash"`
	Timestamp    int64          `json:"timestamp"`
	Transactions []*Transaction `json:"transactions"`
	Nonce        uint64         `json:"nonce"`
	Hash         string         `json:"hash"`
}

type blockWire struct {
	Index        uint64         `json:"index"`
	PreviousHash string         `json:"previous_hash"`
	Timestamp    int64          `json:"timestamp"`
	Transactions []*Transaction `json:"transactions"`
	Nonce        uint64         `json:"nonce"`
	Hash         string         `json:"hash"`
}

// New builds a block with the given fields and sets Hash to Recompute() for
// the given nonce; callers that need proof of work mine it (core/pow).
func New(index uint64, previousHash string, timestamp int64, txs []*Transaction, nonce uint64) *Block {
	if txs == nil {
		txs = []*Transaction{}
	}
	b := &Block{
		Index:        index,
		PreviousHash: previousHash,
		Timestamp:    timestamp,
		Transactions: txs,
		Nonce:        nonce,
	}
	b.Hash = b.Recompute()
	return b
}

// Genesis returns the fixed genesis block: index 0, no transactions,
// timestamp 0, previous_hash "0".
func Genesis() *Block {
	return New(0, GenesisPreviousHash, 0, nil, 0)
}

func (b *Block) canonicalPreimage() []byte {
	var txSegs strings.Builder
	for _, tx := range b.Transactions {
		raw := tx.canonicalPreimageWithSignature()
		txSegs.WriteString(canonSeg(string(raw)))
	}
	s := canonUint(b.Index) +
		canonSeg(b.PreviousHash) +
		canonInt(b.Timestamp) +
		canonSeg(txSegs.String()) +
		canonUint(b.Nonce)
	return []byte(s)
}

// canonicalPreimageWithSignature is the per-transaction preimage embedded in
// a block's hash: unlike Transaction.Hash, this includes the signature, so
// the block hash is sensitive to exactly which signed transaction was
// included.
func (t *Transaction) canonicalPreimageWithSignature() []byte {
	base := t.canonicalPreimage()
	return []byte(string(base) + canonSeg(hex.EncodeToString(t.Signature)))
}

// Recompute returns the hash this block should have given its current
// fields (the value WellFormed, and so Chain.Append, compares Hash against).
func (b *Block) Recompute() string {
	return crypto.HashHex(b.canonicalPreimage())
}

// HasValidPoW reports whether Hash starts with `difficulty` leading '0' hex
// characters.
func (b *Block) HasValidPoW(difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if len(b.Hash) < difficulty {
		return false
	}
	return strings.Count(b.Hash[:difficulty], "0") == difficulty
}

// WellFormed reports whether the stored hash equals the recomputed hash and
// satisfies the proof-of-work requirement for difficulty.
func (b *Block) WellFormed(difficulty int) bool {
	return b.Hash == b.Recompute() && b.HasValidPoW(difficulty)
}

// Serialize encodes the block to its JSON wire form.
func (b *Block) Serialize() ([]byte, error) {
	return json.Marshal(blockWire(*b))
}

// ParseBlock decodes a block from its JSON wire form, failing with
// ErrMalformedBlock when the JSON does not decode into the block shape or a
// transaction entry is null. Field lengths (such as the hash) are not
// checked here; WellFormed rejects a block whose hash does not match.
func ParseBlock(data []byte) (*Block, error) {
	var w blockWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, ErrMalformedBlock
	}
	if w.Transactions == nil {
		w.Transactions = []*Transaction{}
	}
	for _, tx := range w.Transactions {
		if tx == nil {
			return nil, ErrMalformedBlock
		}
	}
	return (*Block)(&w), nil
}
