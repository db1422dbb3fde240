package schema

import (
	"fmt"
	"sort"

	"github.com/clearstone/finportal/constants"
	"github.com/clearstone/finportal/internal/common"
)

// FieldType is the declared type of a template field. Values mirror what the
// object store's template schema endpoint reports.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeDate   FieldType = "date"
	TypeEnum   FieldType = "enum"
	TypeNumber FieldType = "float"
)

// FieldDefinition describes one extractable/storable field of a template.
type FieldDefinition struct {
	Key         string    `yaml:"key"`
	DisplayName string    `yaml:"displayName"`
	Description string    `yaml:"description,omitempty"`
	Type        FieldType `yaml:"type"`
	Options     []string  `yaml:"options,omitempty"`
	// DefaultOnMismatch substitutes DefaultOption when an enum value is not
	// in Options, instead of passing the value through as-is.
	DefaultOnMismatch bool   `yaml:"defaultOnMismatch,omitempty"`
	DefaultOption     string `yaml:"defaultOption,omitempty"`
}

// HasOption reports whether v is one of the declared enum options.
func (f FieldDefinition) HasOption(v string) bool {
	for _, opt := range f.Options {
		if opt == v {
			return true
		}
	}
	return false
}

// Definition is a named, ordered set of typed field definitions.
type Definition struct {
	TemplateKey string            `yaml:"templateKey"`
	DisplayName string            `yaml:"displayName,omitempty"`
	Fields      []FieldDefinition `yaml:"fields"`
}

// Field returns the definition for key, if declared.
func (d *Definition) Field(key string) (FieldDefinition, bool) {
	for _, f := range d.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// FieldKeys returns the declared keys in order.
func (d *Definition) FieldKeys() []string {
	keys := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		keys[i] = f.Key
	}
	return keys
}

// Registry holds every template definition known to the process. Definitions
// are registered at startup and read-only afterwards.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry returns a registry seeded with the built-in templates.
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[string]*Definition)}
	for _, d := range builtinDefinitions() {
		r.defs[d.TemplateKey] = d
	}
	return r
}

// Get looks up a definition by template key.
func (r *Registry) Get(templateKey string) (*Definition, error) {
	d, ok := r.defs[templateKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrSchemaUnknown, templateKey)
	}
	return d, nil
}

// MustGet is Get for keys known at compile time.
func (r *Registry) MustGet(templateKey string) *Definition {
	d, err := r.Get(templateKey)
	if err != nil {
		panic(err)
	}
	return d
}

// Keys returns all registered template keys, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.defs))
	for k := range r.defs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Registry) register(d *Definition) {
	r.defs[d.TemplateKey] = d
}

func builtinDefinitions() []*Definition {
	return []*Definition{
		{
			TemplateKey: constants.TemplateBase,
			DisplayName: "Financial Document Base",
			Fields: []FieldDefinition{
				{Key: "documentType", DisplayName: "Document Type", Description: "The type of financial document", Type: TypeEnum, Options: constants.DocumentTypeOptions()},
				{Key: "taxYear", DisplayName: "Tax Year", Description: "The tax year the document applies to", Type: TypeDate},
				{Key: "issuerName", DisplayName: "Issuer Name", Description: "The organization or entity that issued the document", Type: TypeString},
				{Key: "recipientName", DisplayName: "Recipient Name", Description: "The person or entity receiving the document", Type: TypeString},
				{Key: "documentDate", DisplayName: "Document Date", Description: "The date on the document", Type: TypeDate},
				{Key: "accountOrPolicyNoMasked", DisplayName: "Account/Policy Number (Masked)", Description: "The masked account or policy number", Type: TypeString},
				{Key: "isLegible", DisplayName: "Is Legible", Description: "Whether the document is legible and readable", Type: TypeEnum, Options: []string{"Yes", "No"}},
			},
		},
		{
			TemplateKey: constants.TemplateAddressValidation,
			DisplayName: "Address Validation",
			Fields: []FieldDefinition{
				{Key: "street_address", DisplayName: "Street Address", Description: "Street number, name, and optional unit number of the address", Type: TypeString},
				{Key: "city", DisplayName: "City", Description: "City associated with the address", Type: TypeString},
				{Key: "state_province", DisplayName: "State/Province", Description: "Two-letter abbreviation of the state or province", Type: TypeString},
				{Key: "postal_code", DisplayName: "Postal Code", Description: "ZIP code or postal code of the address", Type: TypeString},
				{Key: "country", DisplayName: "Country", Description: "Country of the address", Type: TypeString},
				{Key: "full_address", DisplayName: "Full Address", Description: "Concatenated full address for quick comparison", Type: TypeString},
				{
					Key: "validation_status", DisplayName: "Validation Status",
					Description:       "Indicates whether the extracted address matches the record address",
					Type:              TypeEnum,
					Options:           []string{constants.ValidationMatch, constants.ValidationMismatch, constants.ValidationPartialMatch, constants.ValidationNotValidated},
					DefaultOnMismatch: true,
					DefaultOption:     constants.ValidationNotValidated,
				},
				{Key: "date_extracted", DisplayName: "Date Extracted", Description: "Date when the address was extracted", Type: TypeDate},
			},
		},
		{
			TemplateKey: constants.TemplateIRS1099,
			DisplayName: "IRS 1099",
			Fields: []FieldDefinition{
				{Key: "formVariant", DisplayName: "Form Variant", Description: "The specific variant of 1099 form", Type: TypeEnum, Options: []string{"INT", "DIV", "B", "MISC", "NEC"}},
				{Key: "payerTinMasked", DisplayName: "Payer TIN (Masked)", Type: TypeString},
				{Key: "recipientTinMasked", DisplayName: "Recipient TIN (Masked)", Type: TypeString},
				{Key: "box1IncomeAmount", DisplayName: "Box 1 Income Amount", Type: TypeNumber},
				{Key: "federalTaxWithheld", DisplayName: "Federal Tax Withheld", Type: TypeNumber},
			},
		},
		{
			TemplateKey: constants.TemplateIRSW2,
			DisplayName: "IRS W-2",
			Fields: []FieldDefinition{
				{Key: "employerEinMasked", DisplayName: "Employer EIN (Masked)", Type: TypeString},
				{Key: "employeeSsnMasked", DisplayName: "Employee SSN (Masked)", Type: TypeString},
				{Key: "box1Wages", DisplayName: "Box 1 Wages", Type: TypeNumber},
				{Key: "box2FederalWithholding", DisplayName: "Box 2 Federal Withholding", Type: TypeNumber},
			},
		},
		{
			TemplateKey: constants.TemplateAccountStatement,
			DisplayName: "Account Statement",
			Fields: []FieldDefinition{
				{Key: "institutionName", DisplayName: "Institution Name", Type: TypeString},
				{Key: "accountType", DisplayName: "Account Type", Type: TypeEnum, Options: []string{"Checking", "Savings", "Brokerage"}},
				{Key: "statementDate", DisplayName: "Statement Date", Type: TypeDate},
				{Key: "beginningBalance", DisplayName: "Beginning Balance", Type: TypeNumber},
				{Key: "endingBalance", DisplayName: "Ending Balance", Type: TypeNumber},
			},
		},
		{
			TemplateKey: constants.TemplateMortgageStatement,
			DisplayName: "Mortgage Statement",
			Fields: []FieldDefinition{
				{Key: "lenderName", DisplayName: "Lender Name", Type: TypeString},
				{Key: "statementDate", DisplayName: "Statement Date", Type: TypeDate},
				{Key: "outstandingBalance", DisplayName: "Outstanding Balance", Type: TypeNumber},
				{Key: "monthlyPayment", DisplayName: "Monthly Payment", Type: TypeNumber},
			},
		},
		{
			TemplateKey: constants.TemplateTrustDocument,
			DisplayName: "Trust Document",
			Fields: []FieldDefinition{
				{Key: "trustName", DisplayName: "Trust Name", Type: TypeString},
				{Key: "trusteeName", DisplayName: "Trustee Name", Type: TypeString},
				{Key: "dateEstablished", DisplayName: "Date Established", Type: TypeDate},
			},
		},
		{
			TemplateKey: constants.TemplateAssetList,
			DisplayName: "Asset List",
			Fields: []FieldDefinition{
				{Key: "preparedBy", DisplayName: "Prepared By", Type: TypeString},
				{Key: "asOfDate", DisplayName: "As-Of Date", Type: TypeDate},
				{Key: "totalValue", DisplayName: "Total Value", Type: TypeNumber},
			},
		},
		{
			TemplateKey: constants.TemplateIRS1040,
			DisplayName: "IRS 1040",
			Fields: []FieldDefinition{
				{Key: "filingStatus", DisplayName: "Filing Status", Type: TypeEnum, Options: []string{"Single", "Married Filing Jointly", "Married Filing Separately", "Head of Household"}},
				{Key: "totalIncome", DisplayName: "Total Income", Type: TypeNumber},
				{Key: "totalTax", DisplayName: "Total Tax", Type: TypeNumber},
			},
		},
		{
			TemplateKey: constants.TemplatePersonalFinancial,
			DisplayName: "Personal Financial Statement",
			Fields: []FieldDefinition{
				{Key: "preparedFor", DisplayName: "Prepared For", Type: TypeString},
				{Key: "statementDate", DisplayName: "Statement Date", Type: TypeDate},
				{Key: "netWorth", DisplayName: "Net Worth", Type: TypeNumber},
			},
		},
		{
			TemplateKey: constants.TemplateLifeInsurance,
			DisplayName: "Life Insurance Document",
			Fields: []FieldDefinition{
				{Key: "insurerName", DisplayName: "Insurer Name", Type: TypeString},
				{Key: "policyType", DisplayName: "Policy Type", Type: TypeEnum, Options: []string{"Term", "Whole Life", "Universal"}},
				{Key: "deathBenefit", DisplayName: "Death Benefit", Type: TypeNumber},
			},
		},
		{
			TemplateKey: constants.TemplateOtherDocument,
			DisplayName: "Other Document",
			Fields: []FieldDefinition{
				{Key: "summary", DisplayName: "Summary", Type: TypeString},
				{Key: "documentDate", DisplayName: "Document Date", Type: TypeDate},
			},
		},
	}
}
