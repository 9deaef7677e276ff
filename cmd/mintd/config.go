package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/pairing"

	"github.com/fedimint-go/mintcore/mint"
)

// fileConfig is the on-disk, JSON-serializable form of a mint.MintConfig
// plus this peer's per-tier aggregate public keys. kyber Points and
// Scalars don't implement json.Marshaler, so every cryptographic value is
// stored hex-encoded via their own MarshalBinary/UnmarshalBinary.
type fileConfig struct {
	PeerID          uint16                        `json:"peer_id"`
	SecretShares    map[string]string             `json:"secret_shares"`   // amount -> hex scalar
	PeerPubShares   map[string]map[string]string   `json:"peer_pub_shares"` // peer -> amount -> hex point
	AggregatePub    map[string]string              `json:"aggregate_pub"`   // amount -> hex point
	NoteIssuanceAbs uint64                         `json:"note_issuance_abs"`
	NoteSpendAbs    uint64                         `json:"note_spend_abs"`
}

func writeConfigFile(path string, peerID mint.PeerId, private mint.MintConfigPrivate, consensus mint.MintConfigConsensus, aggregates map[mint.Amount]mint.AggregatePub) error {
	fc := fileConfig{
		PeerID:        uint16(peerID),
		SecretShares:  map[string]string{},
		PeerPubShares: map[string]map[string]string{},
		AggregatePub:  map[string]string{},
	}
	for amount, secret := range private.SecretShares {
		b, err := secret.Scalar.MarshalBinary()
		if err != nil {
			return err
		}
		fc.SecretShares[fmt.Sprint(amount)] = hex.EncodeToString(b)
	}
	for peer, tiers := range consensus.PeerPubShares {
		m := map[string]string{}
		for amount, share := range tiers {
			b, err := share.Point.MarshalBinary()
			if err != nil {
				return err
			}
			m[fmt.Sprint(amount)] = hex.EncodeToString(b)
		}
		fc.PeerPubShares[fmt.Sprint(peer)] = m
	}
	for amount, agg := range aggregates {
		b, err := agg.Point.MarshalBinary()
		if err != nil {
			return err
		}
		fc.AggregatePub[fmt.Sprint(amount)] = hex.EncodeToString(b)
	}
	fc.NoteIssuanceAbs = uint64(consensus.FeeConsensus.NoteIssuanceAbs)
	fc.NoteSpendAbs = uint64(consensus.FeeConsensus.NoteSpendAbs)

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func readConfigFile(suite pairing.Suite, path string) (*mint.MintConfig, map[mint.Amount]mint.AggregatePub, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, nil, err
	}

	secretShares := map[mint.Amount]mint.SecretShare{}
	for amountStr, hexVal := range fc.SecretShares {
		amount, err := strconv.ParseUint(amountStr, 10, 64)
		if err != nil {
			return nil, nil, err
		}
		scalar, err := decodeScalar(suite, hexVal)
		if err != nil {
			return nil, nil, err
		}
		secretShares[mint.Amount(amount)] = mint.SecretShare{Scalar: scalar}
	}

	peerPubShares := map[mint.PeerId]map[mint.Amount]mint.PubShare{}
	for peerStr, tiers := range fc.PeerPubShares {
		peerID, err := strconv.ParseUint(peerStr, 10, 16)
		if err != nil {
			return nil, nil, err
		}
		m := map[mint.Amount]mint.PubShare{}
		for amountStr, hexVal := range tiers {
			amount, err := strconv.ParseUint(amountStr, 10, 64)
			if err != nil {
				return nil, nil, err
			}
			point, err := decodePoint(suite, hexVal)
			if err != nil {
				return nil, nil, err
			}
			m[mint.Amount(amount)] = mint.PubShare{Point: point}
		}
		peerPubShares[mint.PeerId(peerID)] = m
	}

	aggregates := map[mint.Amount]mint.AggregatePub{}
	for amountStr, hexVal := range fc.AggregatePub {
		amount, err := strconv.ParseUint(amountStr, 10, 64)
		if err != nil {
			return nil, nil, err
		}
		point, err := decodePoint(suite, hexVal)
		if err != nil {
			return nil, nil, err
		}
		aggregates[mint.Amount(amount)] = mint.AggregatePub{Point: point}
	}

	cfg := &mint.MintConfig{
		Local:   mint.MintConfigLocal{PeerID: mint.PeerId(fc.PeerID)},
		Private: mint.MintConfigPrivate{SecretShares: secretShares},
		Consensus: mint.MintConfigConsensus{
			PeerPubShares: peerPubShares,
			FeeConsensus: mint.FeeConsensus{
				NoteIssuanceAbs: mint.Amount(fc.NoteIssuanceAbs),
				NoteSpendAbs:    mint.Amount(fc.NoteSpendAbs),
			},
		},
	}
	return cfg, aggregates, nil
}

func decodeScalar(suite pairing.Suite, hexVal string) (kyber.Scalar, error) {
	b, err := hex.DecodeString(hexVal)
	if err != nil {
		return nil, err
	}
	scalar := suite.G2().Scalar()
	if err := scalar.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	return scalar, nil
}

func decodePoint(suite pairing.Suite, hexVal string) (kyber.Point, error) {
	b, err := hex.DecodeString(hexVal)
	if err != nil {
		return nil, err
	}
	point := suite.G2().Point()
	if err := point.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	return point, nil
}
