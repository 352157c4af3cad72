// Package parsertest holds fixtures shared by provider tests.
package parsertest

import (
	"encoding/json"

	"loanterms/internal/domain"
)

// Fields returns a fully populated ContractFields for the given bank.
func Fields(bank string) domain.ContractFields {
	return domain.ContractFields{
		Bank:                       bank,
		Introduction:               "This agreement is between the borrower and " + bank + ".",
		LoanAmountAndPurpose:       "USD 25,000 for home renovation.",
		InterestRates:              "Fixed 7.5% per annum.",
		LoanTenure:                 "60 months.",
		MonthlyRepayments:          "USD 501 due on the 1st of each month.",
		LatePayments:               "USD 35 fee after a 10 day grace period.",
		LoanSecurity:               "Unsecured.",
		LoanProcessingFees:         "1% of the principal.",
		DefaultAndForeclosure:      "Three missed payments constitute default.",
		EarlyRepaymentAndPenalties: "2% penalty on prepaid principal in year one.",
		ChangesToTerms:             "30 days written notice.",
		InsuranceRequirements:      "Credit life insurance is optional.",
		LoanCancellation:           "Cancellable within 14 days of signing.",
		DisputeResolution:          "Binding arbitration.",
		GoverningLaw:               "Laws of the State of New York.",
	}
}

// ContractJSON returns the JSON a model would emit for Fields(bank).
func ContractJSON(bank string) string {
	b, err := json.Marshal(Fields(bank))
	if err != nil {
		panic(err)
	}
	return string(b)
}
