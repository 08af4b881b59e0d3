package validation

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"

	"github.com/clearbid-io/clearbid/api"
)

// ParseReceiptPayload extracts and decodes the settlement receipt payload
// from a COSE_Sign1 message without verifying the signature. Useful for
// inspecting what a receipt claims before (or independently of) trusting it.
func ParseReceiptPayload(coseB64 api.ReceiptCOSEBase64) (*api.SettlementReceipt, error) {
	raw, err := coseB64.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode COSE bytes: %w", err)
	}

	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(raw); err != nil {
		return nil, fmt.Errorf("parse COSE_Sign1: %w", err)
	}

	var receipt api.SettlementReceipt
	if err := cbor.Unmarshal(msg.Payload, &receipt); err != nil {
		return nil, fmt.Errorf("decode receipt payload: %w", err)
	}
	return &receipt, nil
}

// VerifyReceiptSignature verifies the COSE_Sign1 signature of a settlement
// receipt against the engine's published PEM public key (ECDSA P-256,
// ES256).
func VerifyReceiptSignature(coseB64 api.ReceiptCOSEBase64, publicKeyPEM string) error {
	raw, err := coseB64.Decode()
	if err != nil {
		return fmt.Errorf("decode COSE bytes: %w", err)
	}

	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(raw); err != nil {
		return fmt.Errorf("parse COSE_Sign1: %w", err)
	}

	publicKey, err := parsePublicKeyPEM(publicKeyPEM)
	if err != nil {
		return err
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, publicKey)
	if err != nil {
		return fmt.Errorf("create verifier: %w", err)
	}

	if err := msg.Verify(nil, verifier); err != nil {
		return fmt.Errorf("COSE signature verification failed: %w", err)
	}
	return nil
}

func parsePublicKeyPEM(publicKeyPEM string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("no PEM block in public key")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	ecdsaKey, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not ECDSA")
	}
	return ecdsaKey, nil
}
