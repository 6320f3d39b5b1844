package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyBuilders(t *testing.T) {
	assert.Equal(t, "USER#0xabc", UserPK("0xabc"))
	assert.Equal(t, "STAT#daily#2025-08-29", StatPK("daily", "2025-08-29"))
	assert.Equal(t, "STAT#all#ALL", StatPK("all", "ALL"))
	assert.Equal(t, "LEADERBOARD#2025-W35", LeaderboardPK("2025-W35"))
	assert.Equal(t, "USER#0xabc", UserSK("0xabc"))
	assert.Equal(t, "SWAP#2025-08-29T10:00:00Z#0xdeadbeef", SwapRecordSK("2025-08-29T10:00:00Z", "0xdeadbeef"))
	assert.Equal(t, "LEND#2025-08-29T10:00:00Z#0xdeadbeef", LendingRecordSK("2025-08-29T10:00:00Z", "0xdeadbeef"))
	assert.Equal(t, "EARN#2025-08-29T10:00:00Z#0xdeadbeef", EarnRecordSK("2025-08-29T10:00:00Z", "0xdeadbeef"))
}

func TestSwapRouteRoundTrip(t *testing.T) {
	sk := SwapRouteSK("ethereum", "polygon")
	assert.Equal(t, "SWAP#ethereum,polygon", sk)

	route, err := ParseSwapRouteSK(sk)
	require.NoError(t, err)
	assert.Equal(t, "ethereum", route.Source)
	assert.Equal(t, "polygon", route.Destination)
	assert.True(t, route.CrossChain())
	assert.Equal(t, "ethereum,polygon", route.String())
}

func TestSwapRouteSameChain(t *testing.T) {
	route, err := ParseSwapRouteSK("SWAP#bsc,bsc")
	require.NoError(t, err)
	assert.Equal(t, "bsc", route.Source)
	assert.Equal(t, "bsc", route.Destination)
	assert.False(t, route.CrossChain())
}

func TestParseSwapRouteSKMalformed(t *testing.T) {
	for _, sk := range []string{
		"SWAP#ethereum",    // no separator
		"SWAP#,polygon",    // empty source
		"SWAP#ethereum,",   // empty destination
		"LENDING#eth#aave", // wrong prefix
		"",                 // empty
	} {
		_, err := ParseSwapRouteSK(sk)
		assert.Error(t, err, "sk=%q", sk)
	}
}

func TestLendingMarketRoundTrip(t *testing.T) {
	sk := LendingMarketSK("ethereum", "aave-v3")
	assert.Equal(t, "LENDING#ethereum#aave-v3", sk)

	m, err := ParseLendingMarketSK(sk)
	require.NoError(t, err)
	assert.Equal(t, "ethereum", m.Chain)
	assert.Equal(t, "aave-v3", m.Market)

	_, err = ParseLendingMarketSK("LENDING#ethereum")
	assert.Error(t, err)
	_, err = ParseLendingMarketSK("SWAP#a,b")
	assert.Error(t, err)
}

func TestEarnVaultRoundTrip(t *testing.T) {
	sk := EarnVaultSK("base", "morpho")
	assert.Equal(t, "EARN#base#morpho", sk)

	v, err := ParseEarnVaultSK(sk)
	require.NoError(t, err)
	assert.Equal(t, "base", v.Chain)
	assert.Equal(t, "morpho", v.Protocol)

	_, err = ParseEarnVaultSK("EARN##morpho")
	assert.Error(t, err)
}

func TestAddressFromUserKey(t *testing.T) {
	addr, err := AddressFromUserKey("USER#0xabc")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", addr)

	_, err = AddressFromUserKey("STATS")
	assert.Error(t, err)
	_, err = AddressFromUserKey("USER#")
	assert.Error(t, err)
}
