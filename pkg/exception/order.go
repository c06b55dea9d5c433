package exception

import "github.com/yanun0323/errors"

var (
	ErrOrderNilDelegator  = errors.New("order: nil delegator")
	ErrOrderRoutingFailed = errors.New("order: routing failed")
)
