package types

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of decimal places between ether and wei.
const EtherDecimals = 18

// decimalAmountRgx matches plain non-negative decimal numbers ("1", "1.5", ".5", "2.").
var decimalAmountRgx = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)

// ParseEther converts a decimal ether amount ("1.5") into wei
// (1500000000000000000). It fails on empty, negative or malformed input and
// when the amount has more than 18 decimal places.
func ParseEther(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if !decimalAmountRgx.MatchString(amount) {
		return nil, fmt.Errorf("invalid decimal amount %q", amount)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal amount %q: %w", amount, err)
	}
	wei := d.Shift(EtherDecimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("fractional component exceeds %d decimals: %q", EtherDecimals, amount)
	}
	return wei.BigInt(), nil
}

// FormatEther converts a wei amount into its shortest decimal ether
// representation. A nil amount is formatted as "0".
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -EtherDecimals).String()
}
