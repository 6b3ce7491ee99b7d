package handlers

import (
	"net/http"
	"strconv"

	"ledgerlab/ledger"
)

// HandleChain serves the most recent blocks, oldest first. The optional limit
// query parameter caps how many are returned.
func HandleChain(w http.ResponseWriter, r *http.Request, led *ledger.Ledger) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	blocks, err := led.Chain(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(blocks),
		"blocks": blocks,
	})
}

func HandleValidateChain(w http.ResponseWriter, r *http.Request, led *ledger.Ledger) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := led.ValidateChain(); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}
