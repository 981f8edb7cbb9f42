package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/marginscope/internal/domain"
	"github.com/vadiminshakov/marginscope/internal/services/display"
	"github.com/vadiminshakov/marginscope/internal/services/lender"
	"github.com/vadiminshakov/marginscope/internal/services/risk"
	"github.com/vadiminshakov/marginscope/internal/services/selector"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 16

type entryRequest struct {
	Asset string `json:"asset"`
	Side  string `json:"side"`
}

type interactionRequest struct {
	Interaction string `json:"interaction"`
}

type baseRequest struct {
	Base string `json:"base"`
}

type projectionRequest struct {
	FromAmount decimal.Decimal `json:"from_amount"`
	ToAmount   decimal.Decimal `json:"to_amount"`
}

type selectionResponse struct {
	State       domain.PositionState  `json:"state"`
	Trade       domain.TradeType      `json:"trade"`
	Description string                `json:"description"`
	Single      *domain.PositionEntry `json:"single,omitempty"`
}

type legView struct {
	Asset domain.AssetID  `json:"asset"`
	Side  domain.Side     `json:"side"`
	Delta decimal.Decimal `json:"delta"`
}

type projectionResponse struct {
	Trade       domain.TradeType       `json:"trade"`
	Interaction domain.InteractionKind `json:"interaction"`
	Legs        []legView              `json:"legs"`
	Delta       domain.RiskDelta       `json:"delta"`
	View        display.RiskView       `json:"view"`
}

type assetView struct {
	Symbol            domain.AssetID   `json:"symbol"`
	Address           string           `json:"address,omitempty"`
	Decimals          int32            `json:"decimals"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	LiquidationFactor *decimal.Decimal `json:"liquidation_factor,omitempty"`
	Collateral        decimal.Decimal  `json:"collateral"`
	Debt              decimal.Decimal  `json:"debt"`
}

type marketResponse struct {
	Protocol domain.Protocol `json:"protocol"`
	Base     domain.AssetID  `json:"base"`
	LoadedAt time.Time       `json:"loaded_at"`
	Assets   []assetView     `json:"assets"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func newSelectionResponse(state domain.PositionState) selectionResponse {
	resp := selectionResponse{
		State:       state,
		Trade:       selector.Classify(state),
		Description: selector.Describe(state),
	}
	if entry, ok := selector.LookupSingle(state); ok {
		resp.Single = &entry
	}
	return resp
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, newSelectionResponse(s.Store.State()))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.decodeEntry(w, r)
	if !ok {
		return
	}

	selectable := func(state domain.PositionState) error {
		// toggling off is always allowed
		if state.From.Equal(entry) || state.To.Equal(entry) {
			return nil
		}
		return s.checkSelectable(entry)
	}
	s.dispatch(w, r, selector.Action{Kind: selector.ActionSelect, Asset: entry.Asset, Side: entry.Side}, selectable)
}

func (s *Server) handleDeselect(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.decodeEntry(w, r)
	if !ok {
		return
	}
	s.dispatch(w, r, selector.Action{Kind: selector.ActionDeselect, Asset: entry.Asset, Side: entry.Side})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, selector.Action{Kind: selector.ActionReset})
}

func (s *Server) handleSetInteraction(w http.ResponseWriter, r *http.Request) {
	var req interactionRequest
	if !s.decode(w, r, &req) {
		return
	}
	kind, err := domain.ParseInteraction(req.Interaction)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	s.dispatch(w, r, selector.Action{Kind: selector.ActionSetInteraction, Interaction: kind})
}

func (s *Server) handleSetBase(w http.ResponseWriter, r *http.Request) {
	var req baseRequest
	if !s.decode(w, r, &req) {
		return
	}
	base := domain.NormalizeAssetID(req.Base)
	if m, ok := s.Markets.Current(); ok && base != "" {
		if _, listed := m.Asset(base); !listed {
			s.writeError(w, r, http.StatusUnprocessableEntity, errors.Wrapf(domain.ErrUnknownAsset, "%s", base))
			return
		}
	}
	s.dispatch(w, r, selector.Action{Kind: selector.ActionSetBase, Asset: base})
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	var req projectionRequest
	if !s.decode(w, r, &req) {
		return
	}
	m, ok := s.Markets.Current()
	if !ok {
		s.writeError(w, r, http.StatusServiceUnavailable, errors.New("market snapshot not loaded"))
		return
	}

	state := s.Store.State()
	amounts := risk.Amounts{From: req.FromAmount, To: req.ToAmount}
	legs := risk.LegsFor(state, amounts)
	delta := s.Projector.Project(m.Lender, m.Prices, legs)
	trade := selector.Classify(state)
	s.metrics.projections.WithLabelValues(trade.String()).Inc()

	views := make([]legView, 0, len(legs))
	for _, leg := range legs {
		views = append(views, legView{Asset: leg.Asset, Side: leg.Side, Delta: leg.Delta})
	}

	s.writeJSON(w, r, http.StatusOK, projectionResponse{
		Trade:       trade,
		Interaction: state.Interaction,
		Legs:        views,
		Delta:       delta,
		View:        display.Summary(delta),
	})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	m, ok := s.Markets.Current()
	if !ok {
		s.writeError(w, r, http.StatusServiceUnavailable, errors.New("market snapshot not loaded"))
		return
	}

	resp := marketResponse{
		Protocol: m.Protocol,
		Base:     m.Base,
		LoadedAt: m.LoadedAt,
		Assets:   make([]assetView, 0, len(m.Assets)),
	}
	for _, a := range m.Assets {
		view := assetView{Symbol: a.ID, Decimals: a.Decimals}
		if a.Address != (common.Address{}) {
			view.Address = a.Address.Hex()
		}
		if price, ok := m.Prices.Price(a.ID); ok {
			view.Price = &price
		}
		if factor, ok := m.Lender.LiquidationFactor(a.ID); ok {
			view.LiquidationFactor = &factor
		}
		view.Collateral, view.Debt = lender.Balances(m.Lender, a.ID)
		resp.Assets = append(resp.Assets, view)
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, loaded := s.Markets.Current()
	s.writeJSON(w, r, http.StatusOK, map[string]any{"status": "ok", "market_loaded": loaded})
}

// checkSelectable rejects assets missing from the loaded market and borrows
// the market does not allow. Single-base markets are checked against the
// market's own base asset.
func (s *Server) checkSelectable(entry domain.PositionEntry) error {
	m, ok := s.Markets.Current()
	if !ok {
		return nil
	}
	if _, listed := m.Asset(entry.Asset); !listed {
		return errors.Wrapf(domain.ErrUnknownAsset, "%s", entry.Asset)
	}
	return selector.CanSelect(m.Protocol, m.Base, entry)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, a selector.Action, checks ...selector.Check) {
	state, err := s.Store.Dispatch(a, checks...)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, selector.ErrUnknownAction):
			status = http.StatusBadRequest
		case errors.Is(err, domain.ErrUnknownAsset), errors.Is(err, domain.ErrBorrowNotAllowed):
			status = http.StatusUnprocessableEntity
		}
		s.writeError(w, r, status, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newSelectionResponse(state))
}

func (s *Server) decodeEntry(w http.ResponseWriter, r *http.Request) (domain.PositionEntry, bool) {
	var req entryRequest
	if !s.decode(w, r, &req) {
		return domain.PositionEntry{}, false
	}
	asset := domain.NormalizeAssetID(req.Asset)
	if asset == "" {
		s.writeError(w, r, http.StatusBadRequest, errors.New("asset is required"))
		return domain.PositionEntry{}, false
	}
	side, err := domain.ParseSide(req.Side)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return domain.PositionEntry{}, false
	}
	return domain.NewPositionEntry(asset, side), true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.Wrap(err, "invalid request body"))
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.l.Warn("failed to write response", zap.String("request_id", requestID(r.Context())), zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.l.Error("request failed", zap.String("request_id", requestID(r.Context())), zap.Error(err))
	}
	s.writeJSON(w, r, status, errorResponse{Error: err.Error(), RequestID: requestID(r.Context())})
}
