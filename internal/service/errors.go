package service

import "errors"

var (
	ErrMarketNotFound      = errors.New("market not found")
	ErrTraderNotFound      = errors.New("trader not found")
	ErrTraderNotInMarket   = errors.New("trader does not belong to this market")
	ErrDuplicateSubmission = errors.New("trade already submitted for this round")
	ErrStaleRound          = errors.New("round has already advanced")
	// ErrStaleSettlement never leaves this package: SettleRound reports it as Settled=false.
	ErrStaleSettlement   = errors.New("settlement trigger is stale")
	ErrMarketIDExhausted = errors.New("could not allocate a unique market id")
)
