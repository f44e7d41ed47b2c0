package service

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrNoTransactions  = errors.New("account has no transactions")
	ErrSecurityUnknown = errors.New("security has no trades on this account")
)
