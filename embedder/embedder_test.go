package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildInputRecipeIsStable(t *testing.T) {
	got := BuildInput("Knit exports rebound", "Orders from EU buyers recover in Q2.", "Market Trends")
	assert.Equal(t, "Knit exports rebound\nOrders from EU buyers recover in Q2.\nMarket Trends", got)
}

func TestBuildInputTrimsTitleAndSummary(t *testing.T) {
	got := BuildInput("  title  ", "\nsummary\t", "Automation")
	assert.Equal(t, "title\nsummary\nAutomation", got)
}
