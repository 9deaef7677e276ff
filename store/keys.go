package store

import "encoding/binary"

// Key space prefixes, one byte each, as laid out in spec.md §6. These are
// wire-visible (a differently-configured peer must agree byte-for-byte on
// where things live) so they are declared once here and reused by every
// caller instead of inlined.
const (
	PrefixNonce   byte = 0x10
	PrefixOutcome byte = 0x11
	PrefixAudit   byte = 0x12
	PrefixBackup  byte = 0x13

	// PrefixLegacyConsensusItem and PrefixLegacyPartialSig are historical:
	// nothing in this core decodes them anymore (the mint module rejects
	// all consensus items, spec.md §4.3), but the byte layout is
	// reproduced exactly for on-disk/wire compatibility with older data as
	// spec.md §9 requires.
	PrefixLegacyConsensusItem byte = 0x01
	PrefixLegacyPartialSig    byte = 0x02
)

// AuditVariant distinguishes the two kinds of audit ledger entry plus their
// roll-up totals.
type AuditVariant byte

const (
	AuditIssuance        AuditVariant = 0
	AuditRedemption      AuditVariant = 1
	AuditIssuanceTotal   AuditVariant = 2
	AuditRedemptionTotal AuditVariant = 3
)

// NonceKey builds the persisted key for a spent nonce: prefix_nonce ||
// serialized(PublicKey).
func NonceKey(nonceBytes []byte) []byte {
	return append([]byte{PrefixNonce}, nonceBytes...)
}

// OutcomeKey builds the persisted key for an issuance output outcome:
// prefix_outcome || txid || out_idx_u32_be.
func OutcomeKey(txid []byte, outIdx uint32) []byte {
	key := make([]byte, 0, 1+len(txid)+4)
	key = append(key, PrefixOutcome)
	key = append(key, txid...)
	idx := make([]byte, 4)
	binary.BigEndian.PutUint32(idx, outIdx)
	return append(key, idx...)
}

// AuditItemKey builds the persisted key for an audit ledger entry:
// prefix_audit || variant_tag || key_bytes. keyBytes is empty for the two
// roll-up total variants.
func AuditItemKey(variant AuditVariant, keyBytes []byte) []byte {
	key := make([]byte, 0, 2+len(keyBytes))
	key = append(key, PrefixAudit, byte(variant))
	return append(key, keyBytes...)
}

// AuditItemPrefix is the scan prefix covering every audit entry: the
// per-item entries and the two roll-up totals alike. Scan
// AuditItemKey(variant, nil) to restrict a scan to one variant.
var AuditItemPrefix = []byte{PrefixAudit}

// BackupKey builds the persisted key for a user e-cash backup snapshot:
// prefix_backup || pubkey_bytes.
func BackupKey(pubKeyBytes []byte) []byte {
	return append([]byte{PrefixBackup}, pubKeyBytes...)
}

// EncodeAmountMsats encodes an Amount (msats) as the little-endian u64 the
// persisted layout specifies.
func EncodeAmountMsats(msats uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, msats)
	return buf
}

// DecodeAmountMsats is the inverse of EncodeAmountMsats.
func DecodeAmountMsats(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}

// EncodeBackupValue lays out a backup snapshot as { timestamp_u64_be,
// payload: length-prefixed bytes }.
func EncodeBackupValue(timestamp uint64, payload []byte) []byte {
	buf := make([]byte, 8+4+len(payload))
	binary.BigEndian.PutUint64(buf[0:8], timestamp)
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(payload)))
	copy(buf[12:], payload)
	return buf
}

// DecodeBackupValue is the inverse of EncodeBackupValue.
func DecodeBackupValue(b []byte) (timestamp uint64, payload []byte, ok bool) {
	if len(b) < 12 {
		return 0, nil, false
	}
	timestamp = binary.BigEndian.Uint64(b[0:8])
	length := binary.BigEndian.Uint32(b[8:12])
	if uint32(len(b)-12) != length {
		return 0, nil, false
	}
	return timestamp, b[12:], true
}

// LegacyPartialSignatureKey reproduces the historical 11-byte layout
// (0x02 || request_id_u64_be || peer_id_u16_be) exactly, for compatibility
// with data written before process_consensus_item started rejecting
// everything. Nothing in this core writes new entries under this prefix.
func LegacyPartialSignatureKey(requestID uint64, peerID uint16) []byte {
	buf := make([]byte, 0, 11)
	buf = append(buf, PrefixLegacyPartialSig)
	reqBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(reqBytes, requestID)
	buf = append(buf, reqBytes...)
	peerBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(peerBytes, peerID)
	buf = append(buf, peerBytes...)
	return buf
}

// DecodeLegacyPartialSignatureKey parses the 11-byte legacy layout,
// rejecting anything that doesn't match exactly.
func DecodeLegacyPartialSignatureKey(data []byte) (requestID uint64, peerID uint16, ok bool) {
	if len(data) != 11 || data[0] != PrefixLegacyPartialSig {
		return 0, 0, false
	}
	requestID = binary.BigEndian.Uint64(data[1:9])
	peerID = binary.BigEndian.Uint16(data[9:11])
	return requestID, peerID, true
}

// LegacyConsensusItemKey reproduces 0x01 || json(item), the historical
// encoding for consensus items (spec.md §6, §9). The mint module never
// decodes anything under this prefix at runtime: process_consensus_item
// rejects all items (spec.md §4.3).
func LegacyConsensusItemKey(jsonBody []byte) []byte {
	return append([]byte{PrefixLegacyConsensusItem}, jsonBody...)
}
