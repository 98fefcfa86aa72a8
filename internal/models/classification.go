package models

// ClassificationResult is the ephemeral outcome of resolving one posting.
// It is written straight into the posting's tier fields, never persisted
// on its own.
type ClassificationResult struct {
	Category  string
	TierLabel string
	TierNum   int32
}
