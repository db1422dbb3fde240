package constants

// Template keys for the metadata schemas known to this deployment.
// Stable values (these exact strings identify records in the object store).
const (
	TemplateBase              = "financialDocumentBase"
	TemplateAddressValidation = "address_validation"
	TemplateIRS1099           = "irs1099"
	TemplateIRSW2             = "irsw2"
	TemplateAccountStatement  = "accountStatement"
	TemplateMortgageStatement = "mortgageStatement"
	TemplateTrustDocument     = "trustDocument"
	TemplateAssetList         = "assetList"
	TemplateIRS1040           = "irs1040"
	TemplatePersonalFinancial = "personalFinancialStatement"
	TemplateLifeInsurance     = "lifeInsuranceDocument"
	TemplateOtherDocument     = "otherDocument"
)

// MetadataScope is the store-side namespace all templates live under.
const MetadataScope = "enterprise"

// Validation status values for the address_validation template.
const (
	ValidationMatch        = "Match"
	ValidationMismatch     = "Mismatch"
	ValidationPartialMatch = "Partial Match"
	ValidationNotValidated = "Not Validated"
)
