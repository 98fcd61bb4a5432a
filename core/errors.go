package core

import "errors"

// Sentinel errors returned by the blockchain engine. Callers compare with
// errors.Is; handlers translate these into HTTP status codes.
var (
	// ErrInvalidHeader is returned when a decoded block or transaction header
	// is shorter than its fixed layout (a truncated buffer).
	ErrInvalidHeader = errors.New("core: invalid header")

	// ErrInvalidPayload is returned when a transaction's payload tag doesn't
	// match any known kind, or its length field disagrees with its content.
	ErrInvalidPayload = errors.New("core: invalid payload")

	// ErrChainEmpty reports a chain store that holds no blocks. No ChainStore
	// method returns it: an empty store reports a zero tip and zero blocks.
	ErrChainEmpty = errors.New("core: chain store is empty")

	// ErrNotTipExtension is returned when ChainStore.Append is given a block
	// whose PreviousHash does not equal the current tip hash (or, on an empty
	// store, is not the zero hash).
	ErrNotTipExtension = errors.New("core: block does not extend chain tip")

	// ErrSealFailed is returned when SealBlock cannot find a qualifying nonce
	// within the configured attempt ceiling.
	ErrSealFailed = errors.New("core: unable to seal block")

	// ErrMempoolFull is returned when the mempool is already holding the
	// maximum number of pending transactions.
	ErrMempoolFull = errors.New("core: mempool is full")

	// ErrUnknownBlock is returned when a hash is looked up that isn't present
	// in the chain store's index.
	ErrUnknownBlock = errors.New("core: unknown block hash")

	// ErrLoginInvalid is returned when a login string fails the grammar
	// check: `<first>.<last>`, lowercase letters with optional internal
	// hyphens, each side at least two characters.
	ErrLoginInvalid = errors.New("core: invalid login")
)
