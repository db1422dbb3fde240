package constants

import (
	"strings"
)

// DocumentType is the canonical document category produced by base extraction.
type DocumentType string

const (
	Doc1099               DocumentType = "1099"
	DocW2                 DocumentType = "W-2"
	DocAccountStatement   DocumentType = "Account Statement"
	DocMortgageStatement  DocumentType = "Mortgage Statement"
	DocTrustDocument      DocumentType = "Trust Document"
	DocAssetList          DocumentType = "Asset List"
	Doc1040               DocumentType = "1040"
	DocPersonalFinancial  DocumentType = "Personal Financial Statement"
	DocLifeInsurance      DocumentType = "Life Insurance Document"
	DocOther              DocumentType = "Other"
	DocUnknown            DocumentType = "Unknown"
)

var allDocumentTypes = []DocumentType{
	Doc1099,
	DocW2,
	DocAccountStatement,
	DocMortgageStatement,
	DocTrustDocument,
	DocAssetList,
	Doc1040,
	DocPersonalFinancial,
	DocLifeInsurance,
	DocOther,
}

// DocumentTypeOptions returns the enum option set for the base template.
func DocumentTypeOptions() []string {
	result := make([]string, len(allDocumentTypes))
	for i, dt := range allDocumentTypes {
		result[i] = string(dt)
	}
	return result
}

// templateByDocType maps a base-extraction document type to the template key
// used for the type-specific extraction pass.
var templateByDocType = map[DocumentType]string{
	Doc1099:              TemplateIRS1099,
	DocW2:                TemplateIRSW2,
	DocAccountStatement:  TemplateAccountStatement,
	DocMortgageStatement: TemplateMortgageStatement,
	DocTrustDocument:     TemplateTrustDocument,
	DocAssetList:         TemplateAssetList,
	Doc1040:              TemplateIRS1040,
	DocPersonalFinancial: TemplatePersonalFinancial,
	DocLifeInsurance:     TemplateLifeInsurance,
	DocOther:             TemplateOtherDocument,
}

// TemplateKeyFor resolves the type-specific template for a document type.
// Unmapped or unknown types route to the catch-all template rather than
// failing; the second return reports whether the mapping was direct.
func TemplateKeyFor(dt DocumentType) (string, bool) {
	if key, ok := templateByDocType[dt]; ok {
		return key, true
	}
	return TemplateOtherDocument, false
}

// filename keyword rules, checked in order; first hit wins.
type keywordRule struct {
	docType DocumentType
	all     []string
	any     []string
}

var filenameRules = []keywordRule{
	{docType: Doc1099, all: []string{"1099"}},
	{docType: DocW2, any: []string{"w-2", "w2"}},
	{docType: DocAccountStatement, all: []string{"statement"}, any: []string{"account", "bank", "brokerage"}},
	{docType: DocMortgageStatement, all: []string{"mortgage"}},
	{docType: DocTrustDocument, all: []string{"trust"}},
	{docType: DocAssetList, all: []string{"asset", "list"}},
	{docType: Doc1040, all: []string{"1040"}},
	{docType: DocPersonalFinancial, all: []string{"financial", "statement"}},
	{docType: DocLifeInsurance, all: []string{"insurance"}},
}

// DocumentTypeFromFilename guesses a document type from filename keywords.
// Used by fallback extraction when the provider gives us nothing usable.
func DocumentTypeFromFilename(name string) DocumentType {
	lower := strings.ToLower(name)
	for _, rule := range filenameRules {
		hit := true
		for _, kw := range rule.all {
			if !strings.Contains(lower, kw) {
				hit = false
				break
			}
		}
		if hit && len(rule.any) > 0 {
			hit = false
			for _, kw := range rule.any {
				if strings.Contains(lower, kw) {
					hit = true
					break
				}
			}
		}
		if hit {
			return rule.docType
		}
	}
	return DocUnknown
}
