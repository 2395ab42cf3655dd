package domain

import (
	"math"
	"time"
)

// AmountDue returns total minus paid, clamped at zero. Overpayment is
// recorded in the ledger as-is; the due amount never goes negative.
func AmountDue(totalCents, paidCents int64) int64 {
	due := totalCents - paidCents
	if due < 0 {
		return 0
	}
	return due
}

// PaymentStatusFor derives the payment status from the ledger fold. It is the
// single derivation used by every store; the persisted status column is a
// cache of this value.
func PaymentStatusFor(totalCents, paidCents int64) string {
	if paidCents <= 0 {
		return PaymentStatusUnpaid
	}
	if paidCents >= totalCents {
		return PaymentStatusPaid
	}
	return PaymentStatusPartial
}

// FoldPayments sums a payment ledger and derives the totals for the given
// transaction total.
func FoldPayments(totalCents int64, payments []Payment) PaymentTotals {
	var paid int64
	for _, p := range payments {
		paid += p.AmountCents
	}
	return PaymentTotals{
		AmountPaidCents: paid,
		AmountDueCents:  AmountDue(totalCents, paid),
		PaymentStatus:   PaymentStatusFor(totalCents, paid),
	}
}

// Nights bills whole nights between check-in and the checkout date, rounding
// partial days up. A stay is never billed for zero nights.
func Nights(checkIn time.Time, checkoutDate time.Time) int {
	hours := checkoutDate.Sub(checkIn).Hours()
	nights := int(math.Ceil(hours / 24))
	if nights < 1 {
		return 1
	}
	return nights
}

// FinalBill applies the checkout discount to room charge plus outstanding
// order balance. Out-of-range percentages are accepted; the result is clamped
// at zero so a bill is never negative.
func FinalBill(roomChargeCents, ordersDueCents int64, discount CheckoutDiscount) (billCents int64, discountCents int64) {
	base := roomChargeCents + ordersDueCents

	switch discount.Type {
	case DiscountTypeFlat:
		discountCents = discount.AmountCents
	case DiscountTypePercentage:
		discountCents = int64(math.Round(float64(base) * discount.Percent / 100))
	}
	if discountCents < 0 {
		discountCents = 0
	}

	billCents = base - discountCents
	if billCents < 0 {
		billCents = 0
	}
	return billCents, discountCents
}

// TransactionTotal computes subtotal − discount + tax for a priced item list.
// The bool result reports whether the inputs form a valid non-negative total.
func TransactionTotal(items []LineItem, discountCents, taxCents int64) (subtotal int64, total int64, ok bool) {
	for _, item := range items {
		subtotal += item.LineTotalCents
	}
	if discountCents < 0 || taxCents < 0 {
		return subtotal, 0, false
	}
	total = subtotal - discountCents + taxCents
	if total < 0 {
		return subtotal, total, false
	}
	return subtotal, total, true
}
