package domain

// ExtractionOutcome labels the result of one pipeline run.
type ExtractionOutcome string

const (
	OutcomeSuccess     ExtractionOutcome = "success"
	OutcomeFailed      ExtractionOutcome = "failed"
	OutcomeRateLimited ExtractionOutcome = "rate_limited"
)

// StoreDriver selects the record store backend.
type StoreDriver string

const (
	StorePostgres StoreDriver = "postgres"
	StoreMongo    StoreDriver = "mongo"
	StoreNone     StoreDriver = "none"
)
