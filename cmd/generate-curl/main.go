package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"ledgerlab/testutil"
)

const baseURL = "http://localhost:8080"

func main() {
	fmt.Println("Generating curl test scripts with signed transactions...")

	accounts := testutil.GenerateAccounts(3)
	if err := os.MkdirAll("curl", 0755); err != nil {
		log.Fatal("Failed to create curl directory:", err)
	}

	// One script per signed transaction
	txCount := 5
	for i := 1; i <= txCount; i++ {
		from := accounts[(i-1)%len(accounts)]
		to := accounts[i%len(accounts)]

		tx := testutil.SignedTransaction(from, to.Address, float64(10*i), 0.1)
		jsonData, err := json.MarshalIndent(tx, "", "  ")
		if err != nil {
			log.Printf("Failed to marshal transaction %d: %v", i, err)
			continue
		}

		scriptContent := fmt.Sprintf(`#!/bin/bash
echo "=== POST /api/transactions - transaction %d ==="
echo "id: %s"
echo ""

curl -X POST %s/api/transactions \
  -H "Content-Type: application/json" \
  -d '%s' \
  --max-time 2 \
  --connect-timeout 2 \
  --fail-with-body \
  | jq '.' 2>/dev/null || cat
echo -e "\n"
`, i, tx.ID, baseURL, jsonData)

		filename := fmt.Sprintf("curl/submit_tx_%d.sh", i)
		if err := writeScript(filename, scriptContent); err != nil {
			log.Printf("Failed to write script %s: %v", filename, err)
			continue
		}
		fmt.Printf("Generated: %s\n", filename)
	}

	// Simple GET/POST helpers for the rest of the API
	simple := map[string]string{
		"curl/mine_block.sh":         postScript("/api/mine", `{"miner": "curl-miner"}`),
		"curl/get_stats.sh":          getScript("/api/stats"),
		"curl/get_chain.sh":          getScript("/api/chain?limit=10"),
		"curl/get_pending.sh":        getScript("/api/pending"),
		"curl/validate_chain.sh":     getScript("/api/chain/validate"),
		"curl/get_validators.sh":     getScript("/api/validators"),
		"curl/register_validator.sh": postScript("/api/validators", `{"address": "validator-curl", "stake": 64}`),
		"curl/slash_validator.sh":    postScript("/api/validators/slash", `{"address": "validator-curl", "reason": "curl demo"}`),
	}
	for filename, content := range simple {
		if err := writeScript(filename, content); err != nil {
			log.Fatal("Failed to write script:", err)
		}
		fmt.Printf("Generated: %s\n", filename)
	}

	// A workflow script that exercises the whole API in order
	workflow := fmt.Sprintf(`#!/bin/bash
echo "=== Full ledger workflow ==="
echo "Make sure your node is running first!"
echo ""

if ! curl -s --connect-timeout 2 --max-time 2 %s/api/stats > /dev/null; then
    echo "Server not responding on %s"
    echo "Start your node with: go run ./cmd/ledgerlab serve"
    exit 1
fi

echo "Server is running. Submitting transactions..."
echo ""

`, baseURL, baseURL)
	for i := 1; i <= txCount; i++ {
		workflow += fmt.Sprintf("echo \"Submitting transaction %d...\"\n./curl/submit_tx_%d.sh || echo \"Transaction %d failed, continuing...\"\necho \"\"\n\n", i, i, i)
	}
	workflow += fmt.Sprintf(`echo "Mining the pool..."
./curl/mine_block.sh

echo "Balance of the first account:"
curl -s --connect-timeout 2 --max-time 2 %s/api/balance/%s | jq '.' 2>/dev/null || cat
echo ""

echo "Final stats:"
./curl/get_stats.sh
./curl/validate_chain.sh
`, baseURL, accounts[0].Address)

	if err := writeScript("curl/run_workflow.sh", workflow); err != nil {
		log.Fatal("Failed to write workflow script:", err)
	}
	fmt.Println("Generated: curl/run_workflow.sh")

	fmt.Println("\nUsage:")
	fmt.Println("  1. Start your node: go run ./cmd/ledgerlab serve")
	fmt.Println("  2. Run individual tests: ./curl/submit_tx_1.sh")
	fmt.Println("  3. Run the whole workflow: ./curl/run_workflow.sh")
}

func getScript(path string) string {
	return fmt.Sprintf(`#!/bin/bash
echo "=== GET %s ==="
curl -s --connect-timeout 2 --max-time 2 %s%s | jq '.' 2>/dev/null || cat
echo ""
`, path, baseURL, path)
}

func postScript(path, body string) string {
	return fmt.Sprintf(`#!/bin/bash
echo "=== POST %s ==="
curl -X POST %s%s \
  -H "Content-Type: application/json" \
  -d '%s' \
  --max-time 30 \
  --connect-timeout 2 \
  --fail-with-body \
  | jq '.' 2>/dev/null || cat
echo -e "\n"
`, path, baseURL, path, body)
}

func writeScript(filename, content string) error {
	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(filename, []byte(content), 0755)
}
