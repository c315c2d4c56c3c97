package service

import "errors"

var (
	ErrEmptyTicker        = errors.New("error empty ticker")
	ErrTickerNotFound     = errors.New("error ticker not found")
	ErrNoTickerSelected   = errors.New("error no ticker selected")
	ErrSuperseded         = errors.New("error result superseded by a newer request")
	ErrPredictionInFlight = errors.New("error prediction already in flight")
	ErrUnauthorized       = errors.New("error unauthorized")
)
