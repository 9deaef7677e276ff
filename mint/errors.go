package mint

import (
	"crypto/ed25519"
	"fmt"
)

// InvalidAmountTierError is returned when an input or output names a
// denomination the peer's KeySet has no share for. Not fatal to the
// module: the enclosing transaction is rejected, nothing else.
type InvalidAmountTierError struct {
	Amount Amount
}

func (e *InvalidAmountTierError) Error() string {
	return fmt.Sprintf("mint: no key share for amount tier %d msat", e.Amount)
}

// InvalidSignatureError is returned when a note's signature fails to
// verify under the aggregate public key for its amount.
type InvalidSignatureError struct {
	Amount Amount
}

func (e *InvalidSignatureError) Error() string {
	return fmt.Sprintf("mint: invalid signature on note of amount %d msat", e.Amount)
}

// SpentCoinError is returned when a note's nonce already has an entry in
// the spent-set.
type SpentCoinError struct {
	Nonce NonceKey
}

func (e *SpentCoinError) Error() string {
	return fmt.Sprintf("mint: nonce %x already spent", []byte(e.Nonce))
}

// ConfigInconsistencyError is returned by ValidateConfig when a loaded
// MintConfig fails self-consistency checks. Fatal during startup.
type ConfigInconsistencyError struct {
	Reason string
}

func (e *ConfigInconsistencyError) Error() string {
	return fmt.Sprintf("mint: config inconsistency: %s", e.Reason)
}

// BackupTimestampError is returned by Backup when a caller's request
// carries a timestamp not strictly newer than the stored snapshot.
type BackupTimestampError struct {
	ID ed25519.PublicKey
}

func (e *BackupTimestampError) Error() string {
	return "mint: backup request timestamp too small"
}

// BackupSignatureError is returned by Backup when the caller's signature
// over the request fails to verify.
type BackupSignatureError struct{}

func (e *BackupSignatureError) Error() string {
	return "mint: backup request signature invalid"
}
