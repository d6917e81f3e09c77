package sii

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
)

func line(qty, price float64, discountPct float64, exempt bool) entity.CaseLine {
	return entity.CaseLine{
		Quantity:    decimal.NewFromFloat(qty),
		UnitPrice:   decimal.NewFromFloat(price),
		DiscountPct: decimal.NewFromFloat(discountPct),
		Exempt:      exempt,
	}
}

// Escenario de referencia del set: 2 líneas afectas (1x1000 y 2x500), sin
// descuentos, tipo 33 -> neto 2000, IVA 380, total 2380.
func TestComputeCaseAmounts_FacturaBasica(t *testing.T) {
	lines := []entity.CaseLine{
		line(1, 1000, 0, false),
		line(2, 500, 0, false),
	}

	got := ComputeCaseAmounts(lines, decimal.Zero)

	assert.True(t, got.SubtotalTaxable.Equal(decimal.NewFromInt(2000)), "neto: %s", got.SubtotalTaxable)
	assert.True(t, got.SubtotalExempt.IsZero(), "exento: %s", got.SubtotalExempt)
	assert.True(t, got.TaxAmount.Equal(decimal.NewFromInt(380)), "IVA: %s", got.TaxAmount)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(2380)), "total: %s", got.TotalAmount)
}

func TestComputeCaseAmounts_DescuentoGlobal(t *testing.T) {
	lines := []entity.CaseLine{
		line(1, 10000, 0, false),
	}

	// 10% de descuento global sobre el afecto: neto 9000, IVA 1710, total 10710.
	got := ComputeCaseAmounts(lines, decimal.NewFromInt(10))

	assert.True(t, got.DiscountAmount.Equal(decimal.NewFromInt(1000)), "descuento: %s", got.DiscountAmount)
	assert.True(t, got.SubtotalTaxable.Equal(decimal.NewFromInt(9000)), "neto: %s", got.SubtotalTaxable)
	assert.True(t, got.TaxAmount.Equal(decimal.NewFromInt(1710)), "IVA: %s", got.TaxAmount)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(10710)), "total: %s", got.TotalAmount)
}

func TestComputeCaseAmounts_LineasExentas(t *testing.T) {
	lines := []entity.CaseLine{
		line(1, 1000, 0, false),
		line(1, 500, 0, true),
	}

	got := ComputeCaseAmounts(lines, decimal.Zero)

	assert.True(t, got.SubtotalTaxable.Equal(decimal.NewFromInt(1000)))
	assert.True(t, got.SubtotalExempt.Equal(decimal.NewFromInt(500)))
	assert.True(t, got.TaxAmount.Equal(decimal.NewFromInt(190)))
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(1690)))
}

// MntTotal = MntNeto + MntExe + IVA debe cumplirse exacto, sin residuo.
func TestComputeCaseAmounts_SinResiduoDeRedondeo(t *testing.T) {
	lines := []entity.CaseLine{
		line(3, 333.333, 0, false),
		line(7, 142.857, 5, false),
		line(1, 999.99, 0, true),
	}

	got := ComputeCaseAmounts(lines, decimal.NewFromFloat(2.5))

	sum := got.SubtotalTaxable.Add(got.SubtotalExempt).Add(got.TaxAmount)
	require.True(t, got.TotalAmount.Equal(sum),
		"total %s != neto %s + exento %s + IVA %s",
		got.TotalAmount, got.SubtotalTaxable, got.SubtotalExempt, got.TaxAmount)
	assert.True(t, got.TotalAmount.Equal(got.TotalAmount.Round(0)), "el total debe ser entero")
}

func TestLineSubtotal_DescuentoDeLinea(t *testing.T) {
	l := line(2, 1500, 10, false)

	// 2*1500 = 3000, descuento 300 -> 2700
	assert.True(t, LineDiscountAmount(l).Equal(decimal.NewFromInt(300)))
	assert.True(t, LineSubtotal(l).Equal(decimal.NewFromInt(2700)))
}
