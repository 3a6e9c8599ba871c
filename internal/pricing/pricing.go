// Package pricing holds the pure volume -> weight -> price derivation.
// All values are decimal currency units; conversion to integer minor units
// happens only at the payment-gateway boundary.
package pricing

// WeightGrams converts an enclosed volume to print weight for a material of
// the given density.
func WeightGrams(volumeCm3, densityGPerCm3 float64) float64 {
	return volumeCm3 * densityGPerCm3
}

// Price is weight * perGram * quantity + setupFee. The setup fee is charged
// once per job regardless of quantity. Callers validate quantity >= 1 and
// weight >= 0; with quantity 1 this doubles as the provisional per-unit
// estimate shown before checkout.
func Price(weightGrams float64, quantity int, perGram, setupFee float64) float64 {
	return weightGrams*perGram*float64(quantity) + setupFee
}
