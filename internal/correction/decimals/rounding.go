package decimals

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// storedScale is the number of fractional digits written back to the store.
const storedScale = 12

// Round rounds a stored amount to the currency's decimal places, half away
// from zero, and renders it with twelve fractional digits. changed is false
// when the value already fits the currency.
func Round(value string, decimalPlaces int) (corrected string, changed bool, err error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return "", false, fmt.Errorf("decimals: parse %q: %w", value, err)
	}
	rounded := d.Round(int32(decimalPlaces))
	return rounded.StringFixed(storedScale), !rounded.Equal(d), nil
}
