package handlers

import (
	"encoding/json"
	"net/http"

	"ledgerlab/consensus"
	"ledgerlab/log"
)

type registerValidatorRequest struct {
	Address string  `json:"address"`
	Stake   float64 `json:"stake"`
}

type slashValidatorRequest struct {
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

func HandleValidators(w http.ResponseWriter, r *http.Request, engine *consensus.Engine) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"stats":      engine.Stats(),
			"validators": engine.Validators(),
		})

	case http.MethodPost:
		// 1. Deserialize
		var req registerValidatorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON format", http.StatusBadRequest)
			return
		}

		// 2. Business Logic
		if err := engine.AddValidator(req.Address, req.Stake); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		// 3. Success Response
		validator, err := engine.Validator(req.Address)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"status":    "registered",
			"validator": validator,
		})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func HandleSlashValidator(w http.ResponseWriter, r *http.Request, engine *consensus.Engine) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// 1. Deserialize
	var req slashValidatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if req.Reason == "" {
		req.Reason = "unspecified"
	}

	// 2. Business Logic
	if err := engine.SlashValidator(req.Address, req.Reason); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	log.Info(log.APIModule, "validator slashed via api", "address", req.Address, "reason", req.Reason)

	// 3. Success Response
	validator, err := engine.Validator(req.Address)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "slashed",
		"validator": validator,
	})
}
