package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func requireExactlyOne(rows int64, operation string) error {
	if rows != 1 {
		return fmt.Errorf("%s affected %d rows", operation, rows)
	}
	return nil
}

func parsePositiveAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if d.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("amount %s is not positive", d)
	}
	return d, nil
}
