// Package domain defines core data structures used throughout the dashboard backend.
package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AssetID identifies an asset by its ticker symbol.
type AssetID string

// String returns the string representation.
func (a AssetID) String() string {
	return string(a)
}

// NormalizeAssetID trims and upper-cases a symbol.
func NormalizeAssetID(raw string) AssetID {
	return AssetID(strings.ToUpper(strings.TrimSpace(raw)))
}

// Asset describes a token listed on a lending market.
type Asset struct {
	// ID ticker symbol.
	ID AssetID
	// Address ERC-20 contract address of the underlying token.
	Address common.Address
	// Decimals number of decimals of the raw ledger amounts.
	Decimals int32
}
