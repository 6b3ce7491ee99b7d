package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"ledgerlab/consensus"
	"ledgerlab/ledger"
	"ledgerlab/log"
)

type mineRequest struct {
	Miner string `json:"miner"`
}

// HandleMine drains the pending pool into a new block. The miner address is
// required on proof-of-work chains; on stake-based chains the engine picks
// one when the field is empty.
func HandleMine(w http.ResponseWriter, r *http.Request, led *ledger.Ledger, engine *consensus.Engine) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// 1. Deserialize (an empty body is fine, the miner field is optional)
	var req mineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	// 2. Resolve the miner address
	miner := req.Miner
	if miner == "" {
		if engine.Mode() == consensus.ModePoW {
			writeError(w, http.StatusBadRequest, errors.New("miner address is required in pow mode"))
			return
		}
		selected, err := engine.SelectValidator()
		if err != nil {
			writeError(w, http.StatusConflict, err)
			return
		}
		miner = selected
	}

	// 3. Mine
	block, err := led.MineBlock(r.Context(), miner)
	if err != nil {
		if errors.Is(err, ledger.ErrNoPendingTransactions) {
			writeJSON(w, http.StatusOK, map[string]string{
				"status":  "empty",
				"message": "No pending transactions to mine",
			})
			return
		}
		log.Warn(log.APIModule, "mining request failed", "miner", miner, "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// 4. Success Response
	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "mined",
		"block":  block,
	})
}
