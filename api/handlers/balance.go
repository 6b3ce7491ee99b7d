package handlers

import (
	"errors"
	"net/http"
	"strings"

	"ledgerlab/ledger"
)

func HandleBalance(w http.ResponseWriter, r *http.Request, led *ledger.Ledger) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// 1. Extract the address from the URL path
	address := strings.TrimPrefix(r.URL.Path, "/api/balance/")
	if address == "" || strings.Contains(address, "/") {
		writeError(w, http.StatusBadRequest, errors.New("address is required"))
		return
	}

	// 2. Business Logic
	balance, err := led.AccountBalance(address)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	// 3. Success Response
	writeJSON(w, http.StatusOK, map[string]any{
		"address": address,
		"balance": balance,
	})
}
