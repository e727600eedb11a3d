package server

import (
	"net/http"

	"github.com/rickgao/serum-dashboard/internal/model"
)

func (s *Server) handleGetCustomMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := s.dash.CustomMarkets(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, markets)
}

func (s *Server) handlePutCustomMarkets(w http.ResponseWriter, r *http.Request) {
	var markets []model.CustomMarketInfo
	if err := decodeBody(w, r, &markets); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.dash.SetCustomMarkets(r.Context(), markets); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSelected(w http.ResponseWriter, r *http.Request) {
	selected, err := s.dash.SelectedTokenAccounts(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, selected)
}

func (s *Server) handlePutSelected(w http.ResponseWriter, r *http.Request) {
	var selected map[string]string
	if err := decodeBody(w, r, &selected); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.dash.SetSelectedTokenAccounts(r.Context(), selected); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type feeDiscountBody struct {
	Key string `json:"key"`
}

func (s *Server) handleGetFeeDiscountKey(w http.ResponseWriter, r *http.Request) {
	key, err := s.dash.FeeDiscountKey(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feeDiscountBody{Key: key})
}

func (s *Server) handlePutFeeDiscountKey(w http.ResponseWriter, r *http.Request) {
	var body feeDiscountBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.dash.SetFeeDiscountKey(r.Context(), body.Key); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
