package constants

// Stage is a step in the per-document processing state machine.
type Stage string

// Stable values, in execution order.
const (
	StageUploaded         Stage = "UPLOADED"
	StageBaseExtracted    Stage = "BASE_EXTRACTED"
	StageBaseApplied      Stage = "BASE_APPLIED"
	StageTypeDetermined   Stage = "TYPE_DETERMINED"
	StageTypeExtracted    Stage = "TYPE_EXTRACTED"
	StageTypeApplied      Stage = "TYPE_APPLIED"
	StageAddressExtracted Stage = "ADDRESS_EXTRACTED"
	StageAddressApplied   Stage = "ADDRESS_APPLIED"
	StageCompared         Stage = "COMPARED"
	StageDone             Stage = "DONE"
)

// MismatchType classifies an address discrepancy.
type MismatchType string

const (
	// MismatchFull means no address component matched.
	MismatchFull MismatchType = "full"
	// MismatchPartial means some, but not all, components matched.
	MismatchPartial MismatchType = "partial"
	// MismatchNotValidated means no address could be extracted at all,
	// so the stored address could not be checked against the document.
	MismatchNotValidated MismatchType = "not_validated"
)
