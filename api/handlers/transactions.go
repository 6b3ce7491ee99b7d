package handlers

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"ledgerlab/ledger"
	"ledgerlab/log"
)

func HandleTransactions(w http.ResponseWriter, r *http.Request, led *ledger.Ledger) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// 1. Deserialize
	var tx ledger.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	// 2. Business Logic
	if err := led.AddTransaction(tx); err != nil {
		log.Debug(log.APIModule, "transaction submission rejected", "id", tx.ID, "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// 3. Success Response
	writeJSON(w, http.StatusCreated, map[string]string{
		"status":  "queued",
		"id":      tx.ID,
		"message": "Transaction added to pending pool",
	})
}

func HandlePending(w http.ResponseWriter, r *http.Request, led *ledger.Ledger) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pending, err := led.PendingTransactions()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":        len(pending),
		"transactions": pending,
	})
}

type buildTransactionRequest struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Amount     float64 `json:"amount"`
	Fee        float64 `json:"fee"`
	PrivateKey string  `json:"private_key"`
}

// HandleBuildTransaction builds and signs a transaction without queueing it.
// The key is accepted as a 32-byte hex seed or a full 64-byte hex key.
func HandleBuildTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req buildTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	key, err := decodePrivateKey(req.PrivateKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	tx, err := ledger.NewSignedTransaction(req.From, req.To, req.Amount, req.Fee, key)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

func decodePrivateKey(raw string) (ed25519.PrivateKey, error) {
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return nil, errors.New("private_key must be hex encoded")
	}
	switch len(decoded) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(decoded), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(decoded), nil
	default:
		return nil, errors.New("private_key must be a 32-byte seed or a 64-byte key")
	}
}
