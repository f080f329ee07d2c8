package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRange  = errors.New("invalid price range")
	ErrRangesOverlap = errors.New("buy range must not overlap sell range")
	ErrInvalidParams = errors.New("invalid run parameters")
	ErrBotRunning    = errors.New("bot already running")
	ErrBotNotRunning = errors.New("bot not running")
	ErrWSDisconnect  = errors.New("websocket disconnected")
)

// insufficientBalanceCode is the venue rejection code for placing a sell
// larger than the held balance ("Oversold").
const insufficientBalanceCode = 30005

// GatewayError is a non-2xx response from the execution gateway, carrying
// the venue's raw rejection code and message.
type GatewayError struct {
	HTTPStatus int
	Code       int
	Msg        string
}

func (e *GatewayError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("gateway: status %d, code %d: %s", e.HTTPStatus, e.Code, e.Msg)
	}
	return fmt.Sprintf("gateway: status %d: %s", e.HTTPStatus, e.Msg)
}

// IsInsufficientBalance reports whether err is a venue rejection for selling
// more than the available balance.
func IsInsufficientBalance(err error) bool {
	var ge *GatewayError
	if !errors.As(err, &ge) {
		return false
	}
	return ge.Code == insufficientBalanceCode || strings.Contains(ge.Msg, "Oversold")
}
