package domain

import (
	"strings"

	"github.com/pkg/errors"
)

// Protocol lending protocol family of a market.
type Protocol string

const (
	// ProtocolAave AAVE-style pool with per-reserve liquidation thresholds.
	ProtocolAave Protocol = "aave"
	// ProtocolCompound Compound-V2-style markets with collateral factors.
	ProtocolCompound Protocol = "compound"
	// ProtocolCompoundV3 Comet-style market with a single borrowable base asset.
	ProtocolCompoundV3 Protocol = "compound_v3"
)

// ErrInvalidProtocol is returned for unknown protocol names.
var ErrInvalidProtocol = errors.New("invalid protocol")

// String returns the string representation.
func (p Protocol) String() string {
	return string(p)
}

// IsValid checks if the Protocol value is valid.
func (p Protocol) IsValid() bool {
	return p == ProtocolAave || p == ProtocolCompound || p == ProtocolCompoundV3
}

// SingleBaseAsset reports whether only one settlement asset can be borrowed.
func (p Protocol) SingleBaseAsset() bool {
	return p == ProtocolCompoundV3
}

// ParseProtocol parses a protocol name, accepting a few common aliases.
func ParseProtocol(raw string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "aave", "aave_v3", "aave-v3":
		return ProtocolAave, nil
	case "compound", "compound_v2", "compound-v2":
		return ProtocolCompound, nil
	case "compound_v3", "compound-v3", "comet":
		return ProtocolCompoundV3, nil
	default:
		return "", errors.Wrapf(ErrInvalidProtocol, "%q", raw)
	}
}
