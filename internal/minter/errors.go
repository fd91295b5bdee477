package minter

import "errors"

var (
	ErrZeroPoolAddress    = errors.New("pool address is zero")
	ErrZeroCaller         = errors.New("caller address is zero")
	ErrZeroAmount         = errors.New("deposit amounts must be greater than zero")
	ErrZeroWidth          = errors.New("width must be greater than zero")
	ErrDecimalsFailed     = errors.New("decimals failed")
	ErrTickOutOfRange     = errors.New("tick out of range")
	ErrCompensationFailed = errors.New("compensation failed")
	ErrRefundFailed       = errors.New("refund of unused deposit failed")
)
