package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/clearbid-io/clearbid/api"
	"github.com/clearbid-io/clearbid/validation"
)

func main() {
	var (
		receiptInput = flag.String("receipt", "", "Base64 COSE settlement receipt (file path or inline)")
		keyInput     = flag.String("public-key", "", "Engine receipt public key in PEM (file path or inline)")
		expectInput  = flag.String("expect", "", "Expected settlement JSON (file path or inline JSON)")
		outputFormat = flag.String("format", "text", "Output format: text or json")
		help         = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	if *help {
		showUsage()
		os.Exit(0)
	}

	if *receiptInput == "" || *keyInput == "" || *expectInput == "" {
		showUsage()
		fmt.Fprintf(os.Stderr, "\nError: All three inputs are required (--receipt, --public-key, --expect)\n")
		os.Exit(1)
	}

	receipt, err := readInput(*receiptInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading receipt: %v\n", err)
		os.Exit(2)
	}

	publicKeyPEM, err := readInput(*keyInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading public key: %v\n", err)
		os.Exit(2)
	}

	expectJSON, err := readInput(*expectInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading expectation: %v\n", err)
		os.Exit(2)
	}

	var expect validation.ReceiptExpectation
	if err := json.Unmarshal([]byte(expectJSON), &expect); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing expectation JSON: %v\n", err)
		os.Exit(2)
	}

	result, err := validation.ValidateSettlementReceipt(
		api.ReceiptCOSEBase64(strings.TrimSpace(receipt)), publicKeyPEM, &expect)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error validating receipt: %v\n", err)
		os.Exit(2)
	}

	switch *outputFormat {
	case "json":
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
	default:
		printText(result)
	}

	if !result.IsValid() {
		os.Exit(3)
	}
}

func printText(result *validation.ReceiptValidationResult) {
	status := func(ok bool) string {
		if ok {
			return "PASS"
		}
		return "FAIL"
	}

	fmt.Printf("Signature: %s\n", status(result.SignatureValid))
	fmt.Printf("Auction:   %s\n", status(result.AuctionMatch))
	fmt.Printf("Winner:    %s\n", status(result.WinnerValid))
	fmt.Printf("Amounts:   %s\n", status(result.AmountsValid))

	for _, detail := range result.ValidationDetails {
		fmt.Printf("  - %s\n", detail)
	}

	if result.IsValid() {
		fmt.Println("Receipt is VALID")
	} else {
		fmt.Println("Receipt is INVALID")
	}
}

// readInput returns file contents when the argument names a readable file,
// otherwise the argument itself.
func readInput(input string) (string, error) {
	if _, err := os.Stat(input); err == nil {
		data, err := os.ReadFile(input)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return input, nil
}

func showUsage() {
	fmt.Println(`receipt-validator - verify a COSE-signed settlement receipt

Usage:
  receipt-validator --receipt <file|base64> --public-key <file|pem> --expect <file|json> [--format text|json]

The expectation JSON matches validation.ReceiptExpectation, e.g.:
  {"auction_id": 7, "winner": "bidder2", "unit": "base", "amount": "1200000000000000000", "fee_basis_points": 250}

Exit codes: 0 valid, 1 usage error, 2 input error, 3 receipt invalid.`)
}
