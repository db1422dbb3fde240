package extraction

import (
	"time"

	"github.com/clearstone/finportal/constants"
	"github.com/clearstone/finportal/internal/schema"
)

// SynthesizeFallback builds a minimal field set for a document when the
// provider failed or echoed the schema back. Base extraction guesses the
// document type from filename keywords; the address template gets a
// not-validated skeleton; type-specific templates get an empty-valued
// skeleton of their declared keys (the sanitizer drops the empties, so a
// later apply becomes a clean no-op).
func SynthesizeFallback(doc DocumentRef, def *schema.Definition, now time.Time) map[string]any {
	switch def.TemplateKey {
	case constants.TemplateBase:
		return map[string]any{
			"documentType":  string(constants.DocumentTypeFromFilename(doc.Name)),
			"taxYear":       nil,
			"issuerName":    nil,
			"recipientName": nil,
			"documentDate":  nil,
		}
	case constants.TemplateAddressValidation:
		return map[string]any{
			"street_address":    "",
			"city":              "",
			"state_province":    "",
			"postal_code":       "",
			"country":           "US",
			"full_address":      "",
			"validation_status": constants.ValidationNotValidated,
			"date_extracted":    now.UTC().Format("2006-01-02"),
		}
	default:
		skeleton := make(map[string]any, len(def.Fields))
		for _, f := range def.Fields {
			skeleton[f.Key] = nil
		}
		return skeleton
	}
}
