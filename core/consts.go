package core

import "time"

// Protocol-level constants. Values mirror the reference implementation
// (original_source/lib/src/defaults and server/src/blockchain/structure/consts.rs)
// so that chain files produced by either implementation stay byte-compatible.
const (
	// InitialBalance is the number of coins a brand new login starts with;
	// balance derivation starts every login at this value before replaying
	// the chain.
	InitialBalance = 5000

	// BlockchainFile is the default on-disk chain store filename.
	BlockchainFile = "blockchain.dat"

	// TransactionsPerBlock is the number of transactions a sealed block carries.
	TransactionsPerBlock = 2

	// BlockVersion is the only wire version this node emits or accepts.
	BlockVersion = 1

	// DifficultyTarget is the number of leading hex-zero characters a sealed
	// block's hash must have.
	DifficultyTarget = 1

	// KeypairBitSize is the RSA modulus size used for generated keypairs.
	KeypairBitSize = 2048

	// DefaultPort is the HTTP port a node listens on absent config override.
	DefaultPort = 4242

	// SigSample is the fixed plaintext signed by clients to authenticate
	// requests; the node verifies that signature under the keys published
	// for the claimed login.
	SigSample = "NEXIUMREQ"

	// PeerTimeout is the default bound on peer registration and
	// /blockchain_info calls, so a stalled peer can never block discovery.
	// Gossip broadcasts and the catch-up download use their own timeouts.
	PeerTimeout = 5 * time.Second
)
