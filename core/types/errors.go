package types

import "errors"

// Error kinds surfaced by this package. Callers treat these as reasons to
// drop the offending frame while keeping the peer connection alive.
var (
	// ErrMalformedTx is returned by ParseTransaction when a transaction's
	// encoded fields cannot be decoded.
	ErrMalformedTx = errors.New("types: malformed transaction")

	// ErrBadSignature is returned by Validate when a non-coinbase
	// transaction's signature does not check out.
	ErrBadSignature = errors.New("types: bad signature")

	// ErrMalformedBlock is returned by ParseBlock when a block's encoded
	// fields cannot be decoded.
	ErrMalformedBlock = errors.New("types: malformed block")

	// ErrAddressMismatch is returned when a transaction's sender does not
	// equal AddressOf(signer_public_key).
	ErrAddressMismatch = errors.New("types: sender does not match signer public key")

	// ErrMissingRecipient is returned when recipient is empty.
	ErrMissingRecipient = errors.New("types: missing recipient")

	// ErrInvalidCoinbase names a coinbase transaction that does not carry
	// exactly the mining reward. No function in this repository returns it:
	// validator.ValidateBlock reports such a block by returning false.
	ErrInvalidCoinbase = errors.New("types: invalid coinbase amount")
)
