// Package record builds the output record for one processed document.
package record

import "loanterms/internal/domain"

// Assemble merges the extracted contract fields and contact info into an
// output record keyed by the bank name. An empty bank yields an empty id.
func Assemble(fields domain.ContractFields, contact domain.ContactInfo) domain.OutputRecord {
	id := fields.Bank
	return domain.OutputRecord{
		ID: id,
		Content: domain.RecordContent{
			ID:             id,
			ContactInfo:    contact,
			ContractFields: fields,
		},
	}
}
