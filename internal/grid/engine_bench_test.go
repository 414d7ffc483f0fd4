package grid_test

import (
	"testing"

	"grid_go/internal/grid"

	"github.com/shopspring/decimal"
)

// BenchmarkEngine_Update measures crossing detection on a 31-level ladder.
func BenchmarkEngine_Update(b *testing.B) {
	spec := grid.NewSpec(decimal.RequireFromString("0.680"), decimal.RequireFromString("0.001"), 10, 20)
	engine := grid.NewEngine(spec)

	prices := make([]decimal.Decimal, 0, 40)
	for i := -20; i <= 10; i++ {
		prices = append(prices, spec.Price(i))
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		engine.UpdatePrice(prices[i%len(prices)])
	}
}
