package billing

import "github.com/shopspring/decimal"

// MinorUnits convierte un monto decimal USD a centavos enteros: round(amount * 100).
// Al procesador siempre se transmiten unidades menores enteras, nunca decimales
// flotantes, para evitar deriva de redondeo.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// MaxRefundable devuelve cuánto queda por reembolsar: total - refund_amount.
func MaxRefundable(total, refundAmount decimal.Decimal) decimal.Decimal {
	return total.Sub(refundAmount)
}

// SplitCredit calcula la aplicación de un crédito contra el total vigente:
// amountToApply = min(creditAmount, total), remaining = total - amountToApply.
func SplitCredit(creditAmount, total decimal.Decimal) (amountToApply, remaining decimal.Decimal) {
	amountToApply = creditAmount
	if amountToApply.GreaterThan(total) {
		amountToApply = total
	}
	remaining = total.Sub(amountToApply)
	return amountToApply, remaining
}
