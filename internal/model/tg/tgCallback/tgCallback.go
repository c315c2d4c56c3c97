package tgCallback

// Callback uniques for inline buttons.
const (
	Predict = "predict"
)
