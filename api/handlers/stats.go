package handlers

import (
	"net/http"

	"ledgerlab/consensus"
	"ledgerlab/ledger"
)

func HandleStats(w http.ResponseWriter, r *http.Request, led *ledger.Ledger, engine *consensus.Engine) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	network, err := led.NetworkStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	response := map[string]any{
		"network":   network,
		"consensus": engine.Stats(),
	}
	writeJSON(w, http.StatusOK, response)
}
