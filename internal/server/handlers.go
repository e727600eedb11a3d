package server

import (
	"net/http"
	"strconv"
)

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()
	writeJSON(w, http.StatusOK, s.dash.Session(ctx, r.URL.Query().Get("market")))
}

func (s *Server) handleMarketsList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.MarketsList())
}

func (s *Server) handleMarketInfos(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	infos, err := s.dash.MarketInfos(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	view, err := s.dash.Market(ctx, r.PathValue("address"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	var bids bool
	switch r.URL.Query().Get("side") {
	case "", "asks":
	case "bids":
		bids = true
	default:
		writeError(w, http.StatusBadRequest, "side must be bids or asks")
		return
	}

	book, err := s.dash.OrderBook(ctx, r.PathValue("address"), bids)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handlePricing(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	q := r.URL.Query()
	cost, err := strconv.ParseFloat(q.Get("cost"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cost must be a number")
		return
	}

	var decimals *int
	if raw := q.Get("decimals"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, "decimals must be a non-negative integer")
			return
		}
		decimals = &d
	}

	side := q.Get("side")
	if side == "" {
		side = "buy"
	}

	quote, err := s.dash.Quote(ctx, r.PathValue("address"), side, cost, decimals)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	trades, err := s.dash.Trades(ctx, r.PathValue("address"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleUnmigrated(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	markets, err := s.dash.Unmigrated(ctx, r.PathValue("owner"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, markets)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	b, err := s.dash.Balances(ctx, r.PathValue("owner"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleOpenOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	orders, err := s.dash.OpenOrders(ctx, r.PathValue("owner"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleSelectedTokenAccount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	acc, err := s.dash.SelectedTokenAccount(ctx, r.PathValue("owner"), r.PathValue("mint"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if acc == nil {
		writeError(w, http.StatusNotFound, "no token account for mint")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"pubkey":        acc.Pubkey.String(),
		"effectiveMint": acc.EffectiveMint.String(),
	})
}
