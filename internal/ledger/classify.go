package ledger

import (
	"strings"

	"github.com/finhold/holdings_engine/internal/model"
)

// The upstream imports deliver transaction types as free-form short codes.
// Classification is an explicit code table with fixed precedence: dividend
// wins over buy/sell, buy is checked before sell (so SQB never falls into
// the generic "starts with S" sell rule), anything unmatched is Other.

var dividendCodes = []string{
	"DIO",
	"DIVIDEND",
	"DIVIDEND REINVEST",
	"DIVIDEND REINVESTMENT",
	"DIVIDEND RECEIVED",
}

var buyCodes = []string{
	"BUY",
	"PURCHASE",
	"SQB", // sell-quantity-buy
	"OPI", // opening position in
}

var sellCodes = []string{
	"SELL",
	"SALE",
	"SQS",
	"OPO",
}

// Classify maps a raw transaction type code onto the closed category set.
func Classify(rawType string) model.Category {
	code := strings.ToUpper(strings.TrimSpace(rawType))
	if code == "" {
		return model.CategoryOther
	}

	switch {
	case isDividendCode(code):
		return model.CategoryDividend
	case isBuyCode(code):
		return model.CategoryBuy
	case isSellCode(code):
		return model.CategorySell
	}

	return model.CategoryOther
}

func isDividendCode(code string) bool {
	for _, c := range dividendCodes {
		if code == c {
			return true
		}
	}
	return strings.Contains(code, "DIO") || strings.Contains(code, "DIVIDEND")
}

func isBuyCode(code string) bool {
	for _, c := range buyCodes {
		if code == c {
			return true
		}
	}
	return strings.HasPrefix(code, "B") || strings.Contains(code, "BUY")
}

func isSellCode(code string) bool {
	for _, c := range sellCodes {
		if code == c {
			return true
		}
	}
	return strings.HasPrefix(code, "S") ||
		strings.Contains(code, "SELL") ||
		strings.HasPrefix(code, "NF-")
}
