package models

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/mr-tron/base58"
)

// Event types accepted by the ingestion endpoint.
const (
	EventEntrance = "entrance"
	EventSwap     = "swap"
	EventLending  = "lending"
	EventEarn     = "earn"
)

// ValidationError enumerates the missing or invalid payload fields of a
// rejected request. Surfaced to the client as a 400 with field-level detail.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// SwapPayload describes one completed swap. Amounts are decimal strings.
type SwapPayload struct {
	UserAddress             string `json:"user_address"`
	TxHash                  string `json:"tx_hash"`
	Protocol                string `json:"protocol"`
	SwapProvider            string `json:"swap_provider"`
	SourceChain             string `json:"source_chain"`
	SourceTokenAddress      string `json:"source_token_address"`
	SourceTokenSymbol       string `json:"source_token_symbol"`
	AmountIn                string `json:"amount_in"`
	DestinationChain        string `json:"destination_chain"`
	DestinationTokenAddress string `json:"destination_token_address"`
	DestinationTokenSymbol  string `json:"destination_token_symbol"`
	AmountOut               string `json:"amount_out"`
	Timestamp               string `json:"timestamp"`
}

// Validate checks required fields and returns the parsed event time.
func (p *SwapPayload) Validate() (time.Time, error) {
	v := newValidator()
	v.require("user_address", p.UserAddress)
	v.require("tx_hash", p.TxHash)
	v.require("protocol", p.Protocol)
	v.require("swap_provider", p.SwapProvider)
	v.require("source_chain", p.SourceChain)
	v.require("source_token_address", p.SourceTokenAddress)
	v.require("source_token_symbol", p.SourceTokenSymbol)
	v.require("amount_in", p.AmountIn)
	v.require("destination_chain", p.DestinationChain)
	v.require("destination_token_address", p.DestinationTokenAddress)
	v.require("destination_token_symbol", p.DestinationTokenSymbol)
	v.require("amount_out", p.AmountOut)
	v.address(p.UserAddress)
	return v.finish(p.Timestamp)
}

// LendingPayload describes one lending action (supply, borrow, repay, ...).
type LendingPayload struct {
	UserAddress  string `json:"user_address"`
	TxHash       string `json:"tx_hash"`
	Protocol     string `json:"protocol"`
	Action       string `json:"action"`
	Chain        string `json:"chain"`
	MarketName   string `json:"market_name"`
	TokenAddress string `json:"token_address"`
	TokenSymbol  string `json:"token_symbol"`
	Amount       string `json:"amount"`
	Timestamp    string `json:"timestamp"`
}

func (p *LendingPayload) Validate() (time.Time, error) {
	v := newValidator()
	v.require("user_address", p.UserAddress)
	v.require("tx_hash", p.TxHash)
	v.require("protocol", p.Protocol)
	v.require("action", p.Action)
	v.require("chain", p.Chain)
	v.require("market_name", p.MarketName)
	v.require("token_address", p.TokenAddress)
	v.require("token_symbol", p.TokenSymbol)
	v.require("amount", p.Amount)
	v.address(p.UserAddress)
	return v.finish(p.Timestamp)
}

// EarnPayload describes one earn-vault action (deposit, withdraw, ...).
type EarnPayload struct {
	UserAddress  string `json:"user_address"`
	TxHash       string `json:"tx_hash"`
	Protocol     string `json:"protocol"`
	Action       string `json:"action"`
	Chain        string `json:"chain"`
	VaultName    string `json:"vault_name"`
	VaultAddress string `json:"vault_address"`
	TokenAddress string `json:"token_address"`
	TokenSymbol  string `json:"token_symbol"`
	Amount       string `json:"amount"`
	Timestamp    string `json:"timestamp"`
}

func (p *EarnPayload) Validate() (time.Time, error) {
	v := newValidator()
	v.require("user_address", p.UserAddress)
	v.require("tx_hash", p.TxHash)
	v.require("protocol", p.Protocol)
	v.require("action", p.Action)
	v.require("chain", p.Chain)
	v.require("vault_name", p.VaultName)
	v.require("vault_address", p.VaultAddress)
	v.require("token_address", p.TokenAddress)
	v.require("token_symbol", p.TokenSymbol)
	v.require("amount", p.Amount)
	v.address(p.UserAddress)
	return v.finish(p.Timestamp)
}

type validator struct {
	fields []string
}

func newValidator() *validator { return &validator{} }

func (v *validator) require(name, value string) {
	if strings.TrimSpace(value) == "" {
		v.fields = append(v.fields, name)
	}
}

// address rejects user addresses that are neither hex (EVM, Sui) nor a
// base58-encoded 32-byte key (Solana). Empty values are already reported by
// require.
func (v *validator) address(addr string) {
	if addr == "" || ValidAddress(addr) {
		return
	}
	v.fields = append(v.fields, "user_address")
}

func (v *validator) finish(timestamp string) (time.Time, error) {
	var ts time.Time
	if strings.TrimSpace(timestamp) == "" {
		v.fields = append(v.fields, "timestamp")
	} else {
		parsed, err := time.Parse(time.RFC3339, timestamp)
		if err != nil {
			v.fields = append(v.fields, "timestamp")
		} else {
			ts = parsed.UTC()
		}
	}
	if len(v.fields) > 0 {
		return time.Time{}, &ValidationError{Fields: v.fields}
	}
	return ts, nil
}

// ValidAddress accepts 0x-prefixed hex of 40 or 64 digits (EVM and Sui
// wallets) and base58 strings decoding to 32 bytes (Solana wallets).
func ValidAddress(addr string) bool {
	if h, ok := strings.CutPrefix(addr, "0x"); ok {
		if len(h) != 40 && len(h) != 64 {
			return false
		}
		_, err := hex.DecodeString(h)
		return err == nil
	}
	raw, err := base58.Decode(addr)
	return err == nil && len(raw) == 32
}
