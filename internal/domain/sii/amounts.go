// Package sii contiene la lógica de dominio pura de la certificación DTE:
// cálculo de montos de casos, derivación de códigos de referencia, reglas de
// negocio del SII y aritmética de folios. Sin dependencias de infraestructura.
package sii

import (
	"github.com/shopspring/decimal"

	"github.com/tu-usuario/certificacion-sii/internal/domain/entity"
	pkgsii "github.com/tu-usuario/certificacion-sii/pkg/sii"
)

// Amounts montos calculados de un caso/documento, en pesos enteros.
// MntTotal = MntNeto + MntExe + IVA exacto, sin residuos de redondeo.
type Amounts struct {
	SubtotalTaxable decimal.Decimal // neto afecto, descuento global ya aplicado
	SubtotalExempt  decimal.Decimal
	DiscountAmount  decimal.Decimal // descuento global sobre el afecto
	TaxAmount       decimal.Decimal // IVA 19% del neto afecto
	TotalAmount     decimal.Decimal
}

// ComputeCaseAmounts calcula los montos de un caso a partir de sus líneas y
// el descuento global (%). El descuento global se aplica solo sobre el
// afecto; el IVA es el 19% del afecto post-descuento, redondeado a peso.
func ComputeCaseAmounts(lines []entity.CaseLine, globalDiscountPct decimal.Decimal) Amounts {
	var taxable, exempt decimal.Decimal

	for _, line := range lines {
		subtotal := LineSubtotal(line)
		if line.Exempt {
			exempt = exempt.Add(subtotal)
		} else {
			taxable = taxable.Add(subtotal)
		}
	}

	taxable = taxable.Round(0)
	exempt = exempt.Round(0)

	discount := decimal.Zero
	if globalDiscountPct.IsPositive() {
		discount = taxable.Mul(globalDiscountPct).Div(decimal.NewFromInt(100)).Round(0)
	}

	netTaxable := taxable.Sub(discount)
	tax := netTaxable.Mul(decimal.NewFromInt(pkgsii.TasaIVA)).Div(decimal.NewFromInt(100)).Round(0)

	return Amounts{
		SubtotalTaxable: netTaxable,
		SubtotalExempt:  exempt,
		DiscountAmount:  discount,
		TaxAmount:       tax,
		TotalAmount:     netTaxable.Add(exempt).Add(tax),
	}
}

// LineSubtotal subtotal de una línea: qty*precio menos el descuento de línea,
// redondeado a peso. El descuento se expresa como monto (DescuentoMonto),
// nunca como porcentaje: el SII valida MontoItem = qty*precio - DescuentoMonto.
func LineSubtotal(line entity.CaseLine) decimal.Decimal {
	gross := line.Quantity.Mul(line.UnitPrice)
	return gross.Sub(LineDiscountAmount(line)).Round(0)
}

// LineDiscountAmount monto de descuento de la línea en pesos enteros.
func LineDiscountAmount(line entity.CaseLine) decimal.Decimal {
	if !line.DiscountPct.IsPositive() {
		return decimal.Zero
	}
	return line.Quantity.Mul(line.UnitPrice).Mul(line.DiscountPct).Div(decimal.NewFromInt(100)).Round(0)
}
