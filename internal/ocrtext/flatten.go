// Package ocrtext turns a document-analysis result into plain text and pulls
// the contact fields out of it.
package ocrtext

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"loanterms/internal/domain"
)

// Unicode-aware stand-ins for \s, \d and \w, which RE2 limits to ASCII.
const (
	space = `\s\v\x{1c}-\x{1f}\x{85}\p{Z}`
	digit = `\p{Nd}`
	word  = `\p{L}\p{N}_`
)

var (
	customerServicePattern = regexp.MustCompile(`Customer Service:[` + space + `]+([\+` + digit + `\(\)\-` + space + `]+)`)
	emailPattern           = regexp.MustCompile(`Email:[` + space + `]+([` + word + `\.\@]+)`)
	// Address runs to the end of the flattened text; nothing bounds it.
	addressPattern = regexp.MustCompile(`Address:[` + space + `]+(.+)`)
)

// Flatten joins the trimmed text of every line, pages in order and lines in
// order, with a single space, and extracts the contact fields from the result.
func Flatten(doc domain.OCRDocument) (string, domain.ContactInfo) {
	var tokens []string
	for _, page := range doc.Pages {
		for _, line := range page.Lines {
			tokens = append(tokens, strings.TrimSpace(line.Text))
		}
	}
	text := strings.Join(tokens, " ")
	return text, ExtractContactInfo(text)
}

// ExtractContactInfo applies the contact patterns to already flattened text.
func ExtractContactInfo(text string) domain.ContactInfo {
	return domain.ContactInfo{
		CustomerService: firstGroup(customerServicePattern, text),
		Email:           firstGroup(emailPattern, text),
		Address:         firstGroup(addressPattern, text),
	}
}

func firstGroup(re *regexp.Regexp, text string) *string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v := strings.TrimSpace(m[1])
	return &v
}

// DecodeDocument reads an OCR document from JSON. Unknown keys are ignored and
// absent pages or lines are treated as empty.
func DecodeDocument(r io.Reader) (domain.OCRDocument, error) {
	var doc domain.OCRDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return domain.OCRDocument{}, fmt.Errorf("%w: %w", domain.ErrInvalidDocument, err)
	}
	return doc, nil
}

// DecodeDocumentBytes is DecodeDocument for an in-memory payload.
func DecodeDocumentBytes(data []byte) (domain.OCRDocument, error) {
	var doc domain.OCRDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.OCRDocument{}, fmt.Errorf("%w: %w", domain.ErrInvalidDocument, err)
	}
	return doc, nil
}
