package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenBook(t *testing.T) {
	b := NewTokenBook(map[string]string{
		"sol":  "So11111111111111111111111111111111111111112",
		"USDC": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
	})

	assert.Equal(t, TokenID("So11111111111111111111111111111111111111112"), b.Resolve("SOL"))
	assert.Equal(t, TokenID("So11111111111111111111111111111111111111112"), b.Resolve(" sol "))
	assert.Equal(t, TokenID("RAY"), b.Resolve("RAY"))
	assert.Equal(t, "USDC", b.Name("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"))
	assert.Equal(t, "4k3D..kX6R", b.Name("4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R"))
	assert.True(t, b.Known("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"))
	assert.False(t, b.Known("RAY"))
	assert.Equal(t, 2, b.Len())
}

func TestTokenBookNil(t *testing.T) {
	var b *TokenBook
	assert.Equal(t, TokenID("SOL"), b.Resolve("SOL"))
	assert.Equal(t, "SOL", b.Name("SOL"))
	assert.False(t, b.Known("SOL"))
	assert.Zero(t, b.Len())
}

func TestPoolValidate(t *testing.T) {
	ok := Pool{ID: "p", TokenA: "A", TokenB: "B", ReserveA: 1, ReserveB: 0, FeeRate: 0.003}
	assert.NoError(t, ok.Validate())
	assert.True(t, ok.Empty())

	bad := []Pool{
		{ID: "", TokenA: "A", TokenB: "B"},
		{ID: "p", TokenA: "A", TokenB: "A"},
		{ID: "p", TokenA: "A", TokenB: "B", ReserveA: -1},
		{ID: "p", TokenA: "A", TokenB: "B", FeeRate: 1},
	}
	for _, p := range bad {
		assert.Error(t, p.Validate())
	}
}

func TestOpportunityKey(t *testing.T) {
	o := Opportunity{VenueA: "raydium", VenueB: "orca", TokenA: "SOL", TokenB: "USDC", ProfitPct: 1.23456, InputAmount: 1, OutputAmount: 1.02}
	assert.Equal(t, OpportunityKey("raydium-orca-SOL-USDC-1.23"), o.Key())
	assert.InDelta(t, 1.02, o.RoundTripRatio(), 1e-12)
	assert.Zero(t, Opportunity{}.RoundTripRatio())
}
