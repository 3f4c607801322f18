package model

import "errors"

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidDate     = errors.New("invalid date format, use YYYY-MM-DD")
)
