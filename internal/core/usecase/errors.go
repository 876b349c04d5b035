package usecase

// Human-readable reasons surfaced in ValidationResult and, on rejection,
// concatenated into the transaction description.
const (
	MsgTransactionNotFound      = "Transaction not found"
	MsgAmountNotPositive        = "Transaction amount must be positive"
	MsgInsufficientBalance      = "Insufficient balance"
	MsgPossibleDuplicate        = "Possible duplicate transaction detected"
	MsgDailyLimitExceeded       = "Transaction exceeds daily limit"
	MsgFraudIndicators          = "Multiple fraud indicators detected"
	MsgConfidenceBelowThreshold = "Transaction confidence below threshold"
	MsgValidationSystemError    = "Validation system error"
)
