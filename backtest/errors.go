package backtest

import "errors"

var (
	// ErrDataUnavailable is returned when no requested symbol has bars in
	// the window. It is the only error that aborts a run once it has
	// started fetching.
	ErrDataUnavailable = errors.New("no historical data in range")

	// ErrInvalidRequest is returned before any data is fetched.
	ErrInvalidRequest = errors.New("invalid backtest request")
)
