// Package marketdata loads lending market snapshots produced by an external
// fetcher and turns them into the accessor and price book used by the risk
// projector.
package marketdata

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/marginscope/internal/domain"
	"github.com/vadiminshakov/marginscope/internal/services/lender"
	"github.com/vadiminshakov/marginscope/internal/services/risk"
	"gopkg.in/yaml.v3"
)

// maxDecimals is the largest token precision accepted in a snapshot.
const maxDecimals = 36

// ErrInvalidSnapshot is returned for snapshots that parse but fail validation.
var ErrInvalidSnapshot = errors.New("invalid market snapshot")

// Market is a validated snapshot of one lending market and the tracked account.
type Market struct {
	Protocol domain.Protocol
	Base     domain.AssetID
	Assets   []domain.Asset
	Prices   risk.Prices
	Lender   lender.Lender
	LoadedAt time.Time
}

// Asset returns the listing of id.
func (m *Market) Asset(id domain.AssetID) (domain.Asset, bool) {
	for _, a := range m.Assets {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Asset{}, false
}

// snapshotFile is the on-disk layout. Raw amounts are decimal strings of
// ledger integers so they survive YAML without precision loss.
type snapshotFile struct {
	Protocol string `yaml:"protocol"`
	Base     string `yaml:"base"`
	// BasePrincipal signed base balance of a single-base market, negative when borrowing.
	BasePrincipal string        `yaml:"base_principal"`
	Assets        []assetRecord `yaml:"assets"`
}

type assetRecord struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals int32  `yaml:"decimals"`
	Price    string `yaml:"price"`

	// ThresholdBps liquidation threshold in basis points (aave).
	ThresholdBps uint64 `yaml:"threshold_bps"`
	// CollateralFactor 1e18 mantissa (compound, compound_v3).
	CollateralFactor  string `yaml:"collateral_factor"`
	CollateralEnabled bool   `yaml:"collateral_enabled"`
	// ExchangeRate 1e18-scaled cToken exchange rate (compound).
	ExchangeRate string `yaml:"exchange_rate"`

	Supplied     string `yaml:"supplied"`
	StableDebt   string `yaml:"stable_debt"`
	VariableDebt string `yaml:"variable_debt"`
}

// Parse decodes and validates a YAML snapshot.
func Parse(data []byte) (*Market, error) {
	var f snapshotFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to decode market snapshot")
	}

	protocol, err := domain.ParseProtocol(f.Protocol)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidSnapshot, err.Error())
	}
	base := domain.NormalizeAssetID(f.Base)
	if base == "" {
		base = domain.DefaultBaseCurrency
	}
	if len(f.Assets) == 0 {
		return nil, errors.Wrap(ErrInvalidSnapshot, "no assets listed")
	}

	m := &Market{
		Protocol: protocol,
		Base:     base,
		Assets:   make([]domain.Asset, 0, len(f.Assets)),
		Prices:   make(risk.Prices, len(f.Assets)),
	}

	var (
		reserves lender.Reserves
		comet    = lender.CometMarket{}
		hasBase  bool
	)
	for i, rec := range f.Assets {
		asset, err := parseAsset(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "asset #%d", i)
		}
		if _, dup := m.Asset(asset.ID); dup {
			return nil, errors.Wrapf(ErrInvalidSnapshot, "asset %s listed twice", asset.ID)
		}
		m.Assets = append(m.Assets, asset)

		if rec.Price != "" {
			price, err := decimal.NewFromString(rec.Price)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse price of %s", asset.ID)
			}
			m.Prices[asset.ID] = price
		}

		amounts, err := parseAmounts(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "asset %s", asset.ID)
		}

		switch protocol {
		case domain.ProtocolAave:
			reserves.Aave = append(reserves.Aave, lender.AaveReserve{
				Asset:                    asset,
				LiquidationThresholdBps:  rec.ThresholdBps,
				UsageAsCollateralEnabled: rec.CollateralEnabled,
				ATokenBalance:            amounts.supplied,
				StableDebt:               amounts.stableDebt,
				VariableDebt:             amounts.variableDebt,
			})
		case domain.ProtocolCompound:
			reserves.Compound = append(reserves.Compound, lender.CompoundMarket{
				Asset:                    asset,
				CollateralFactorMantissa: amounts.collateralFactor,
				ExchangeRateMantissa:     amounts.exchangeRate,
				CTokenBalance:            amounts.supplied,
				BorrowBalance:            amounts.variableDebt,
				Entered:                  rec.CollateralEnabled,
			})
		case domain.ProtocolCompoundV3:
			if asset.ID == base {
				comet.Base = asset
				hasBase = true
				continue
			}
			comet.Collaterals = append(comet.Collaterals, lender.CometCollateral{
				Asset:                     asset,
				LiquidateCollateralFactor: amounts.collateralFactor,
				Balance:                   amounts.supplied,
			})
		}
	}

	if protocol == domain.ProtocolCompoundV3 {
		if !hasBase {
			return nil, errors.Wrapf(ErrInvalidSnapshot, "base asset %s is not listed", base)
		}
		principal, err := parseSigned(f.BasePrincipal)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse base principal")
		}
		comet.BasePrincipal = principal
		reserves.CompoundV3 = &comet
	}

	m.Lender, err = lender.New(protocol, reserves)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func parseAsset(rec assetRecord) (domain.Asset, error) {
	id := domain.NormalizeAssetID(rec.Symbol)
	if id == "" {
		return domain.Asset{}, errors.Wrap(ErrInvalidSnapshot, "missing symbol")
	}
	if rec.Decimals < 0 || rec.Decimals > maxDecimals {
		return domain.Asset{}, errors.Wrapf(ErrInvalidSnapshot, "%s: decimals %d out of range", id, rec.Decimals)
	}
	asset := domain.Asset{ID: id, Decimals: rec.Decimals}
	if rec.Address != "" {
		if !common.IsHexAddress(rec.Address) {
			return domain.Asset{}, errors.Wrapf(ErrInvalidSnapshot, "%s: bad contract address %q", id, rec.Address)
		}
		asset.Address = common.HexToAddress(rec.Address)
	}
	return asset, nil
}

type rawAmounts struct {
	supplied         *big.Int
	stableDebt       *big.Int
	variableDebt     *big.Int
	collateralFactor *big.Int
	exchangeRate     *big.Int
}

func parseAmounts(rec assetRecord) (rawAmounts, error) {
	var (
		out rawAmounts
		err error
	)
	fields := []struct {
		name string
		raw  string
		dst  **big.Int
	}{
		{"supplied", rec.Supplied, &out.supplied},
		{"stable_debt", rec.StableDebt, &out.stableDebt},
		{"variable_debt", rec.VariableDebt, &out.variableDebt},
		{"collateral_factor", rec.CollateralFactor, &out.collateralFactor},
		{"exchange_rate", rec.ExchangeRate, &out.exchangeRate},
	}
	for _, f := range fields {
		if *f.dst, err = parseUnsigned(f.raw); err != nil {
			return rawAmounts{}, errors.Wrapf(err, "field %s", f.name)
		}
	}
	return out, nil
}

// parseUnsigned parses a ledger integer bounded to 256 bits. Empty means zero.
func parseUnsigned(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return new(big.Int), nil
	}
	if strings.HasPrefix(raw, "-") {
		return nil, errors.Wrapf(ErrInvalidSnapshot, "negative amount %s", raw)
	}
	v, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSnapshot, "amount %s: %v", raw, err)
	}
	return v.ToBig(), nil
}

// parseSigned parses a signed ledger integer whose magnitude fits 256 bits.
func parseSigned(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	negative := strings.HasPrefix(raw, "-")
	v, err := parseUnsigned(strings.TrimPrefix(raw, "-"))
	if err != nil {
		return nil, err
	}
	if negative {
		v.Neg(v)
	}
	return v, nil
}
