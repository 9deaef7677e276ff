// Package mint implements the server-side mint consensus module: input
// (redemption) and output (issuance) processing, the audit ledger, the
// backup/recover endpoints, and trusted-dealer/distributed key generation
// for a single denomination-tiered federation of peers.
//
// The module never runs consensus itself; it is driven by an enclosing
// transaction engine (see package txengine) that hands it already-ordered
// inputs and outputs one [store.Transaction] at a time.
package mint

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"

	"go.dedis.ch/kyber/v3"
)

// Amount is a quantity of millisatoshis. Every operation names exactly one
// denomination tier by its Amount.
type Amount uint64

// PeerId identifies one federation member.
type PeerId uint16

// NonceKey is the unique byte identity of a note's nonce: the serialized
// blinding point. Once a NonceKey is inserted into the spent-set it is
// never removed.
type NonceKey []byte

// OutPoint identifies a pending issuance output within a transaction.
type OutPoint struct {
	TxID   [32]byte
	OutIdx uint32
}

// BlindSig is one peer's (or, once aggregated off-core, the federation's)
// BLS-style signature over a blinded nonce.
type BlindSig struct {
	Point kyber.Point
}

// Note is a bearer e-cash token: an amount, a nonce, and the federation's
// aggregate signature over that nonce. A Note is valid input only if
// Signature verifies against AggregatePub[Amount].
type Note struct {
	Amount    Amount
	Nonce     kyber.Point
	Signature BlindSig
}

// Input is a spend: a note being redeemed.
type Input struct {
	Amount Amount
	Note   Note
}

// Output is an issuance request: a blinded nonce awaiting a signature
// share, to be aggregated by the client off-core once threshold shares
// exist.
type Output struct {
	Amount     Amount
	BlindNonce kyber.Point
}

// InputMeta is returned by ProcessInput on success: the spent amount, the
// fee charged, and the note's redeeming public key (the nonce itself,
// since Chaumian notes carry their own spend key).
type InputMeta struct {
	Amount Amount
	Fee    Amount
	PubKey kyber.Point
}

// OutputMeta is returned by ProcessOutput on success.
type OutputMeta struct {
	Amount Amount
	Fee    Amount
}

// MintOutputOutcome is the blind-signature share produced for one
// outstanding issuance output, persisted keyed by OutPoint.
type MintOutputOutcome struct {
	SignatureShare BlindSig
}

// AuditItemKind distinguishes the four audit ledger entry shapes.
type AuditItemKind int

const (
	AuditIssuance AuditItemKind = iota
	AuditRedemption
	AuditIssuanceTotal
	AuditRedemptionTotal
)

// AuditItem is one entry in the audit ledger: either a per-item issuance or
// redemption record, or one of the two roll-up totals written by Audit.
type AuditItem struct {
	Kind     AuditItemKind
	OutPoint OutPoint // set for AuditIssuance
	Nonce    NonceKey // set for AuditRedemption
	Amount   Amount
}

// FeeConsensus holds the federation-agreed fee schedule.
type FeeConsensus struct {
	NoteIssuanceAbs Amount
	NoteSpendAbs    Amount
}

// SecretShare is one peer's share of a denomination tier's secret key.
type SecretShare struct {
	Scalar kyber.Scalar
}

// PubShare is the public counterpart of a SecretShare, as published by one
// peer for one tier.
type PubShare struct {
	Point kyber.Point
}

// AggregatePub is the federation's aggregate public key for one
// denomination tier, obtained by degree-f Lagrange interpolation at zero
// over threshold peer PubShares.
type AggregatePub struct {
	Point kyber.Point
}

// KeySet is everything one peer's Mint instance holds for its denomination
// tiers: its own secret shares, every peer's published public shares, and
// the per-tier aggregate public keys.
type KeySet struct {
	SecretShares  map[Amount]SecretShare
	PeerPubShares map[PeerId]map[Amount]PubShare
	AggregatePub  map[Amount]AggregatePub
}

// MintConfigConsensus is the federation-wide, peer-agreed portion of a
// Mint's configuration: public material only.
type MintConfigConsensus struct {
	PeerPubShares map[PeerId]map[Amount]PubShare
	FeeConsensus  FeeConsensus
}

// MintConfigPrivate is the per-peer secret portion of a Mint's
// configuration: never shared with other peers or clients.
type MintConfigPrivate struct {
	SecretShares map[Amount]SecretShare
}

// MintConfigLocal holds configuration that is neither consensus nor secret
// (e.g. this peer's own id).
type MintConfigLocal struct {
	PeerID PeerId
}

// MintConfig is the full configuration loaded for one Mint instance.
type MintConfig struct {
	Local     MintConfigLocal
	Private   MintConfigPrivate
	Consensus MintConfigConsensus
}

// BackupRequest is an unsigned request to store an e-cash backup snapshot
// under a user's Ed25519 public key.
type BackupRequest struct {
	ID        ed25519.PublicKey
	Timestamp uint64
	Payload   []byte
}

// serialize returns the form of the request that gets signed: everything
// but the signature itself, which SignedBackupRequest carries separately.
func (r *BackupRequest) serialize() ([]byte, error) {
	return json.Marshal(r)
}

// SignedBackupRequest pairs a BackupRequest with the caller's Ed25519
// signature proving ownership of the backup slot, as verified by
// Mint.Backup.
type SignedBackupRequest struct {
	Request   BackupRequest
	Signature []byte
}

// Sign signs req using the caller's Ed25519 private key, the same
// serialize-then-sign idiom the transaction engine's Proposal and Vote
// types use.
func (r BackupRequest) Sign(priv ed25519.PrivateKey) (SignedBackupRequest, error) {
	b, err := r.serialize()
	if err != nil {
		return SignedBackupRequest{}, err
	}
	return SignedBackupRequest{Request: r, Signature: ed25519.Sign(priv, b)}, nil
}

// VerifySignature checks req.Signature against req.Request.ID.
func (req SignedBackupRequest) VerifySignature() (bool, error) {
	if len(req.Signature) == 0 {
		return false, errors.New("mint: missing backup request signature")
	}
	b, err := req.Request.serialize()
	if err != nil {
		return false, err
	}
	return ed25519.Verify(req.Request.ID, b, req.Signature), nil
}

// ECashBackupSnapshot is the persisted form of a user's most recent backup.
type ECashBackupSnapshot struct {
	Timestamp uint64
	Payload   []byte
}
