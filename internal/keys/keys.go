// Package keys centralizes the composite partition/sort key formats of the
// metrics table. The aggregator encodes dimensions into sort keys through
// these builders and the analytics layer decodes them back through the
// matching parsers, so the two sides cannot drift apart.
package keys

import (
	"fmt"
	"strings"
)

// Fixed sort keys.
const (
	StatsSK   = "STATS"   // user stats row under USER#{address}
	GeneralSK = "GENERAL" // general counters row under STAT#{type}#{start}
)

// Sort-key prefixes for category breakdown range reads.
const (
	SwapRoutePrefix     = "SWAP#"
	LendingMarketPrefix = "LENDING#"
	EarnVaultPrefix     = "EARN#"
)

// GlobalBoard is the score index holding all-time XP across every user.
const GlobalBoard = "LEADERBOARD#GLOBAL"

func UserPK(address string) string { return "USER#" + address }

func StatPK(periodType, periodStart string) string {
	return "STAT#" + periodType + "#" + periodStart
}

func LeaderboardPK(week string) string { return "LEADERBOARD#" + week }

func UserSK(address string) string { return "USER#" + address }

// WeeklyBoard names the score index for one leaderboard week.
func WeeklyBoard(week string) string { return "LEADERBOARD#" + week }

// Immutable event record sort keys; uniqueness is (address, ts, txHash).
func SwapRecordSK(ts, txHash string) string    { return "SWAP#" + ts + "#" + txHash }
func LendingRecordSK(ts, txHash string) string { return "LEND#" + ts + "#" + txHash }
func EarnRecordSK(ts, txHash string) string    { return "EARN#" + ts + "#" + txHash }

// SwapRoute is the dimension tuple embedded in a swap category sort key.
type SwapRoute struct {
	Source      string
	Destination string
}

// CrossChain reports whether the route leaves its source chain.
func (r SwapRoute) CrossChain() bool { return r.Source != r.Destination }

// String renders the route the way it appears in API breakdowns.
func (r SwapRoute) String() string { return r.Source + "," + r.Destination }

func SwapRouteSK(source, destination string) string {
	return SwapRoutePrefix + source + "," + destination
}

// ParseSwapRouteSK inverts SwapRouteSK. Sort keys that do not carry exactly
// one source and one destination are rejected.
func ParseSwapRouteSK(sk string) (SwapRoute, error) {
	dims, ok := strings.CutPrefix(sk, SwapRoutePrefix)
	if !ok {
		return SwapRoute{}, fmt.Errorf("not a swap route sort key: %q", sk)
	}
	src, dst, ok := strings.Cut(dims, ",")
	if !ok || src == "" || dst == "" {
		return SwapRoute{}, fmt.Errorf("malformed swap route dimensions: %q", sk)
	}
	return SwapRoute{Source: src, Destination: dst}, nil
}

// LendingMarket is the dimension tuple of a lending category sort key.
type LendingMarket struct {
	Chain  string
	Market string
}

func LendingMarketSK(chain, market string) string {
	return LendingMarketPrefix + chain + "#" + market
}

func ParseLendingMarketSK(sk string) (LendingMarket, error) {
	dims, ok := strings.CutPrefix(sk, LendingMarketPrefix)
	if !ok {
		return LendingMarket{}, fmt.Errorf("not a lending market sort key: %q", sk)
	}
	chain, market, ok := strings.Cut(dims, "#")
	if !ok || chain == "" || market == "" {
		return LendingMarket{}, fmt.Errorf("malformed lending market dimensions: %q", sk)
	}
	return LendingMarket{Chain: chain, Market: market}, nil
}

// EarnVault is the dimension tuple of an earn category sort key.
type EarnVault struct {
	Chain    string
	Protocol string
}

func EarnVaultSK(chain, protocol string) string {
	return EarnVaultPrefix + chain + "#" + protocol
}

func ParseEarnVaultSK(sk string) (EarnVault, error) {
	dims, ok := strings.CutPrefix(sk, EarnVaultPrefix)
	if !ok {
		return EarnVault{}, fmt.Errorf("not an earn vault sort key: %q", sk)
	}
	chain, protocol, ok := strings.Cut(dims, "#")
	if !ok || chain == "" || protocol == "" {
		return EarnVault{}, fmt.Errorf("malformed earn vault dimensions: %q", sk)
	}
	return EarnVault{Chain: chain, Protocol: protocol}, nil
}

// AddressFromUserKey extracts the wallet address from a USER#{address} key,
// used when formatting leaderboard rows.
func AddressFromUserKey(k string) (string, error) {
	addr, ok := strings.CutPrefix(k, "USER#")
	if !ok || addr == "" {
		return "", fmt.Errorf("not a user key: %q", k)
	}
	return addr, nil
}
