package domain

import "time"

// ContactInfo holds the contact fields found by pattern in the flattened text.
// A nil field means the pattern did not match and serializes as null.
type ContactInfo struct {
	CustomerService *string `json:"Customer Service" bson:"Customer Service"`
	Email           *string `json:"Email" bson:"Email"`
	Address         *string `json:"Address" bson:"Address"`
}

// ContractFields is the structured output requested from the language model.
// Every field is required and free-form; no figures are parsed.
type ContractFields struct {
	Bank                       string `json:"bank" bson:"bank"`
	Introduction               string `json:"introduction" bson:"introduction"`
	LoanAmountAndPurpose       string `json:"loan_amount_and_purpose" bson:"loan_amount_and_purpose"`
	InterestRates              string `json:"interest_rates" bson:"interest_rates"`
	LoanTenure                 string `json:"loan_tenure" bson:"loan_tenure"`
	MonthlyRepayments          string `json:"monthly_repayments" bson:"monthly_repayments"`
	LatePayments               string `json:"late_payments" bson:"late_payments"`
	LoanSecurity               string `json:"loan_security" bson:"loan_security"`
	LoanProcessingFees         string `json:"loan_processing_fees" bson:"loan_processing_fees"`
	DefaultAndForeclosure      string `json:"default_and_foreclosure" bson:"default_and_foreclosure"`
	EarlyRepaymentAndPenalties string `json:"early_repayment_and_penalties" bson:"early_repayment_and_penalties"`
	ChangesToTerms             string `json:"changes_to_terms" bson:"changes_to_terms"`
	InsuranceRequirements      string `json:"insurance_requirements" bson:"insurance_requirements"`
	LoanCancellation           string `json:"loan_cancellation" bson:"loan_cancellation"`
	DisputeResolution          string `json:"dispute_resolution" bson:"dispute_resolution"`
	GoverningLaw               string `json:"governing_law" bson:"governing_law"`
}

// ContractFieldNames lists the JSON names of ContractFields in declaration order.
var ContractFieldNames = []string{
	"bank",
	"introduction",
	"loan_amount_and_purpose",
	"interest_rates",
	"loan_tenure",
	"monthly_repayments",
	"late_payments",
	"loan_security",
	"loan_processing_fees",
	"default_and_foreclosure",
	"early_repayment_and_penalties",
	"changes_to_terms",
	"insurance_requirements",
	"loan_cancellation",
	"dispute_resolution",
	"governing_law",
}

// Values returns the field values in ContractFieldNames order.
func (f ContractFields) Values() []string {
	return []string{
		f.Bank,
		f.Introduction,
		f.LoanAmountAndPurpose,
		f.InterestRates,
		f.LoanTenure,
		f.MonthlyRepayments,
		f.LatePayments,
		f.LoanSecurity,
		f.LoanProcessingFees,
		f.DefaultAndForeclosure,
		f.EarlyRepaymentAndPenalties,
		f.ChangesToTerms,
		f.InsuranceRequirements,
		f.LoanCancellation,
		f.DisputeResolution,
		f.GoverningLaw,
	}
}

// RecordContent is the flat content object of an output record: the id,
// the three contact fields and the sixteen contract fields.
type RecordContent struct {
	ID             string `json:"id" bson:"id"`
	ContactInfo    `bson:",inline"`
	ContractFields `bson:",inline"`
}

// OutputRecord is the persisted shape for one processed document.
type OutputRecord struct {
	ID      string        `json:"id" bson:"_id"`
	Content RecordContent `json:"content" bson:"content"`
}

// TermRecord is an OutputRecord as held by a record store.
type TermRecord struct {
	OutputRecord `bson:",inline"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at" db:"updated_at"`
}

// FlattenResult is the TextFlattener output as exposed by the preview endpoint.
type FlattenResult struct {
	Text    string      `json:"text"`
	Contact ContactInfo `json:"contact"`
}
