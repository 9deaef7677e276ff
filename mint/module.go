package mint

import (
	"context"

	"go.dedis.ch/kyber/v3/pairing"

	"github.com/fedimint-go/mintcore/store"
)

// Mint is one peer's server-side mint module instance: the immutable key
// material loaded at construction, plus the fee schedule every input and
// output is charged against. All mutable state lives in the backing
// [store.Store]; a Mint value itself is safe for concurrent use because it
// never holds anything but read-only material (spec.md §5).
type Mint struct {
	suite  pairing.Suite
	selfID PeerId

	secretShares map[Amount]SecretShare
	aggregatePub map[Amount]AggregatePub
	feeConsensus FeeConsensus
}

// NewMint builds a Mint from a validated configuration and the
// federation's per-tier aggregate public keys. It panics if cfg has no
// denomination tiers, if a tier this peer holds a secret share for has no
// aggregate public key (extra aggregate-only tiers are accepted), or if
// this peer's own id has no entry in the published public shares —
// mirroring Mint::new's startup panics in
// the original server, since these indicate a broken deployment rather
// than adversarial input.
func NewMint(suite pairing.Suite, cfg *MintConfig, aggregatePub map[Amount]AggregatePub) *Mint {
	if len(cfg.Private.SecretShares) == 0 {
		panic("mint: NewMint called with no denomination tiers")
	}
	for amount := range cfg.Private.SecretShares {
		if _, ok := aggregatePub[amount]; !ok {
			panic("mint: denomination tiers inconsistent between secret shares and aggregate public keys")
		}
	}
	if _, ok := cfg.Consensus.PeerPubShares[cfg.Local.PeerID]; !ok {
		panic("mint: own peer id has no published public share")
	}

	return &Mint{
		suite:        suite,
		selfID:       cfg.Local.PeerID,
		secretShares: cfg.Private.SecretShares,
		aggregatePub: aggregatePub,
		feeConsensus: cfg.Consensus.FeeConsensus,
	}
}

// ProcessInput redeems a note: verifies its signature, consumes its
// nonce, and records an audit entry, all inside dbtx. Grounded on
// process_input in the original mint server (spec.md §4.2.1).
func (m *Mint) ProcessInput(ctx context.Context, dbtx store.Transaction, input Input) (InputMeta, error) {
	aggregate, ok := m.aggregatePub[input.Amount]
	if !ok {
		return InputMeta{}, &InvalidAmountTierError{Amount: input.Amount}
	}

	if err := verifyNoteSignature(m.suite, input.Note, aggregate); err != nil {
		return InputMeta{}, err
	}

	nonceBytes, err := input.Note.Nonce.MarshalBinary()
	if err != nil {
		return InputMeta{}, &InvalidSignatureError{Amount: input.Amount}
	}
	nonceKey := store.NonceKey(nonceBytes)

	if _, had := dbtx.Insert(nonceKey, []byte{}); had {
		return InputMeta{}, &SpentCoinError{Nonce: NonceKey(nonceBytes)}
	}

	auditKey := store.AuditItemKey(store.AuditRedemption, nonceKey)
	dbtx.InsertNew(auditKey, store.EncodeAmountMsats(uint64(input.Amount)))

	dbtx.OnCommit(func() {
		observeRedeemedEcash(input.Amount, m.feeConsensus.NoteSpendAbs)
	})

	return InputMeta{
		Amount: input.Amount,
		Fee:    m.feeConsensus.NoteSpendAbs,
		PubKey: input.Note.Nonce,
	}, nil
}

// ProcessOutput issues a blind-signature share for a pending output.
// Grounded on process_output in the original mint server (spec.md
// §4.2.2).
func (m *Mint) ProcessOutput(ctx context.Context, dbtx store.Transaction, output Output, outPoint OutPoint) (OutputMeta, error) {
	secret, ok := m.secretShares[output.Amount]
	if !ok {
		return OutputMeta{}, &InvalidAmountTierError{Amount: output.Amount}
	}

	blindBytes, err := output.BlindNonce.MarshalBinary()
	if err != nil {
		return OutputMeta{}, &InvalidAmountTierError{Amount: output.Amount}
	}

	sig, err := signShare(m.suite, int(m.selfID), secret, blindBytes)
	if err != nil {
		return OutputMeta{}, err
	}

	outcomeBytes, err := encodeOutcome(MintOutputOutcome{SignatureShare: sig})
	if err != nil {
		return OutputMeta{}, err
	}
	outcomeKey := store.OutcomeKey(outPoint.TxID[:], outPoint.OutIdx)
	dbtx.InsertNew(outcomeKey, outcomeBytes)

	auditKey := store.AuditItemKey(store.AuditIssuance, outPointKeyBytes(outPoint))
	dbtx.InsertNew(auditKey, store.EncodeAmountMsats(uint64(output.Amount)))

	dbtx.OnCommit(func() {
		observeIssuedEcash(output.Amount)
	})

	return OutputMeta{
		Amount: output.Amount,
		Fee:    m.feeConsensus.NoteIssuanceAbs,
	}, nil
}

// encodeOutcome serializes a MintOutputOutcome as the raw bytes of its
// signature share point, the persisted form store.OutcomeKey's value maps
// to (spec.md §6).
func encodeOutcome(outcome MintOutputOutcome) ([]byte, error) {
	return outcome.SignatureShare.Point.MarshalBinary()
}

// decodeOutcome is the inverse of encodeOutcome.
func decodeOutcome(suite pairing.Suite, b []byte) (MintOutputOutcome, error) {
	point := suite.G1().Point()
	if err := point.UnmarshalBinary(b); err != nil {
		return MintOutputOutcome{}, err
	}
	return MintOutputOutcome{SignatureShare: BlindSig{Point: point}}, nil
}

// GetOutputOutcome looks up the signature share recorded for a pending
// issuance output, if ProcessOutput has already run for it.
func (m *Mint) GetOutputOutcome(ctx context.Context, dbtx store.Transaction, outPoint OutPoint) (MintOutputOutcome, bool) {
	v, ok := dbtx.Get(store.OutcomeKey(outPoint.TxID[:], outPoint.OutIdx))
	if !ok {
		return MintOutputOutcome{}, false
	}
	outcome, err := decodeOutcome(m.suite, v)
	if err != nil {
		return MintOutputOutcome{}, false
	}
	return outcome, true
}

// outPointKeyBytes is the audit-entry key suffix for an issuance: txid
// followed by the big-endian output index, matching OutcomeKey's layout so
// the two entries for one output point sort adjacently under their
// respective prefixes.
func outPointKeyBytes(op OutPoint) []byte {
	key := make([]byte, 0, 36)
	key = append(key, op.TxID[:]...)
	key = append(key, byte(op.OutIdx>>24), byte(op.OutIdx>>16), byte(op.OutIdx>>8), byte(op.OutIdx))
	return key
}

// AuditReport is the balance Audit hands back: issuances counted as
// negative msats, redemptions as positive. It is a single net figure summed
// over every denomination tier; it is not broken down per tier.
type AuditReport struct {
	NetMsats int64
}

// Audit rolls up every per-item issuance and redemption audit entry into
// the two running totals, deleting the scanned entries, and returns the net
// balance of the entries scanned in this roll-up (not of the running
// totals). Grounded on the audit() method of the original mint server
// (spec.md §4.2.3).
func (m *Mint) Audit(ctx context.Context, dbtx store.Transaction) (AuditReport, error) {
	var issuanceSum, redemptionSum uint64
	var toDelete [][]byte

	dbtx.ScanPrefix(store.AuditItemKey(store.AuditIssuance, nil), func(k, v []byte) bool {
		issuanceSum += store.DecodeAmountMsats(v)
		toDelete = append(toDelete, append([]byte{}, k...))
		return true
	})
	dbtx.ScanPrefix(store.AuditItemKey(store.AuditRedemption, nil), func(k, v []byte) bool {
		redemptionSum += store.DecodeAmountMsats(v)
		toDelete = append(toDelete, append([]byte{}, k...))
		return true
	})

	for _, k := range toDelete {
		dbtx.Remove(k)
	}

	totalKey := store.AuditItemKey(store.AuditIssuanceTotal, nil)
	prevIssuance, _ := dbtx.Get(totalKey)
	newIssuance := issuanceSum
	if prevIssuance != nil {
		newIssuance += store.DecodeAmountMsats(prevIssuance)
	}
	dbtx.Insert(totalKey, store.EncodeAmountMsats(newIssuance))

	redTotalKey := store.AuditItemKey(store.AuditRedemptionTotal, nil)
	prevRedemption, _ := dbtx.Get(redTotalKey)
	newRedemption := redemptionSum
	if prevRedemption != nil {
		newRedemption += store.DecodeAmountMsats(prevRedemption)
	}
	dbtx.Insert(redTotalKey, store.EncodeAmountMsats(newRedemption))

	return AuditReport{NetMsats: int64(redemptionSum) - int64(issuanceSum)}, nil
}

// Backup verifies and stores a caller's e-cash backup snapshot. Grounded
// on handle_backup_request (spec.md §4.2.4).
func (m *Mint) Backup(ctx context.Context, dbtx store.Transaction, req SignedBackupRequest) error {
	ok, err := req.VerifySignature()
	if err != nil || !ok {
		return &BackupSignatureError{}
	}

	key := store.BackupKey(req.Request.ID)

	if prev, ok := dbtx.Get(key); ok {
		prevTimestamp, _, valid := store.DecodeBackupValue(prev)
		if valid && prevTimestamp >= req.Request.Timestamp {
			return &BackupTimestampError{ID: req.Request.ID}
		}
	}

	dbtx.Insert(key, store.EncodeBackupValue(req.Request.Timestamp, req.Request.Payload))
	return nil
}

// Recover is a pure read of a caller's most recent backup snapshot, if
// any. Grounded on handle_recover_request (spec.md §4.2.4).
func (m *Mint) Recover(ctx context.Context, dbtx store.Transaction, id []byte) (ECashBackupSnapshot, bool) {
	v, ok := dbtx.Get(store.BackupKey(id))
	if !ok {
		return ECashBackupSnapshot{}, false
	}
	timestamp, payload, valid := store.DecodeBackupValue(v)
	if !valid {
		return ECashBackupSnapshot{}, false
	}
	return ECashBackupSnapshot{Timestamp: timestamp, Payload: payload}, true
}

// ProcessConsensusItem always rejects: this module is driven purely by
// transaction inputs and outputs routed by the enclosing transaction
// engine (spec.md §4.3).
func (m *Mint) ProcessConsensusItem(ctx context.Context, dbtx store.Transaction, item []byte) error {
	return errConsensusItemsUnsupported
}

// ConsensusProposal always returns an empty batch, for the same reason
// ProcessConsensusItem always rejects (spec.md §4.3).
func (m *Mint) ConsensusProposal(ctx context.Context) [][]byte {
	return nil
}

var errConsensusItemsUnsupported = &configItemError{"mint does not process consensus items"}

type configItemError struct{ msg string }

func (e *configItemError) Error() string { return e.msg }
