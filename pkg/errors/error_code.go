package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeInvalidConfiguration ErrorCode = 100
	ErrCodeInvalidDateRange     ErrorCode = 101
	ErrCodeInvalidDateFormat    ErrorCode = 102
	ErrCodeInvalidPeriod        ErrorCode = 103
	ErrCodeInvalidOrder         ErrorCode = 104
	ErrCodeInvalidVersion       ErrorCode = 105
	ErrCodeVersionMismatch      ErrorCode = 106

	// Data source errors (200-299)
	ErrCodeDataSourceUnavailable ErrorCode = 200
	ErrCodeQueryFailed           ErrorCode = 201
	ErrCodeNoDataFound           ErrorCode = 202
	ErrCodeResultsWriteFailed    ErrorCode = 203

	// Strategy errors (300-399)
	ErrCodeUnsupportedStrategy ErrorCode = 300
	ErrCodeStrategyConfigError ErrorCode = 301

	// Account errors (400-499). These are expected refusals, never fatal.
	ErrCodeInsufficientFunds  ErrorCode = 400
	ErrCodeInsufficientShares ErrorCode = 401

	// Engine errors (500-599)
	ErrCodeUnknownStrategy          ErrorCode = 500
	ErrCodeEngineShutdown           ErrorCode = 501
	ErrCodeEngineInvariantViolation ErrorCode = 502
	ErrCodeLiquidationStall         ErrorCode = 503
	ErrCodeReplayAlreadyStarted     ErrorCode = 504
	ErrCodeReplayNoStrategies       ErrorCode = 505

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataWriteFailed ErrorCode = 701
	ErrCodeInvalidProvider       ErrorCode = 702
)
