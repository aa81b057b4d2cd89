package billing

import "errors"

var (
	ErrMissingInput    = errors.New("missing input")
	ErrInvalidRange    = errors.New("exit time before entry time")
	ErrInvalidPolicy   = errors.New("invalid duration policy")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidConfig   = errors.New("invalid configuration")
)
