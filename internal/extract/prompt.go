package extract

import (
	"fmt"
	"strings"

	"github.com/dgrange/loanpipe/internal/model"
)

const fieldPromptHeader = `Extract structured fields from the following financial document. Return a JSON array of field objects. Each object must have these fields:

- "field_name": snake_case identifier for the field (string)
- "value": the extracted value (string, number, boolean, or null)
- "confidence": how certain you are of this value, from 0.0 to 1.0 (number)
- "raw_text": the source text the value came from, max 500 chars (string)

Rules:
- Only extract values that appear in the document. Never infer or invent amounts.
- Monetary amounts must be plain numbers: no currency symbols, no thousands separators.
- Dates must be ISO format strings (YYYY-MM-DD).
- Use null for a field you can locate but cannot read.
- Lower the confidence when the source text is ambiguous or degraded.
- Return an empty array [] if the document contains no extractable fields.

Respond with ONLY the JSON array, no other text.`

// docTypeHints name the fields worth looking for per document type.
var docTypeHints = map[model.DocumentType]string{
	model.DocTypeTaxReturn:      "taxpayer_name, tax_year, total_income, adjusted_gross_income, total_tax",
	model.DocTypeTaxReturn1040:  "taxpayer_name, spouse_name, tax_year, filing_status, wages, total_income, adjusted_gross_income, total_tax",
	model.DocTypeTaxReturn1065:  "business_name, ein, tax_year, gross_receipts, total_deductions, ordinary_business_income",
	model.DocTypeTaxReturn1120S: "business_name, ein, tax_year, gross_receipts, total_deductions, ordinary_business_income",
}

// BuildFieldPrompt assembles the extraction prompt for one document.
func BuildFieldPrompt(docType model.DocumentType, documentText string) string {
	var sb strings.Builder
	sb.WriteString(fieldPromptHeader)
	sb.WriteString("\n\n---\n")
	sb.WriteString(fmt.Sprintf("Document type: %s\n", docType))
	if hints, ok := docTypeHints[docType]; ok {
		sb.WriteString("Expected fields: ")
		sb.WriteString(hints)
		sb.WriteString("\n")
	}
	sb.WriteString("---\n")
	sb.WriteString(documentText)
	return sb.String()
}
