package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clearstone/finportal/constants"
	"github.com/clearstone/finportal/internal/schema"
)

func baseDef(t *testing.T) *schema.Definition {
	t.Helper()
	return schema.NewRegistry().MustGet(constants.TemplateBase)
}

func addressDef(t *testing.T) *schema.Definition {
	t.Helper()
	return schema.NewRegistry().MustGet(constants.TemplateAddressValidation)
}

func TestSanitizeDropsEmptyAndUndeclared(t *testing.T) {
	out := Sanitize(map[string]any{
		"documentType": "W-2",
		"issuerName":   "",
		"taxYear":      nil,
		"madeUpField":  "x",
	}, baseDef(t))
	assert.Equal(t, map[string]any{"documentType": "W-2"}, out)
}

func TestSanitizeDateNormalizes(t *testing.T) {
	out := Sanitize(map[string]any{"documentDate": "2023-04-01"}, baseDef(t))
	assert.Equal(t, "2023-04-01T00:00:00Z", out["documentDate"])
}

func TestSanitizeDateRejectsOtherFormats(t *testing.T) {
	for _, bad := range []string{"2023/04/01", "04-01-2023", "April 1, 2023", "2023-13-01"} {
		out := Sanitize(map[string]any{"documentDate": bad}, baseDef(t))
		assert.NotContains(t, out, "documentDate", "input %q should be dropped", bad)
	}
}

func TestSanitizeEnumDefaultOnMismatch(t *testing.T) {
	out := Sanitize(map[string]any{"validation_status": "kinda matches"}, addressDef(t))
	assert.Equal(t, constants.ValidationNotValidated, out["validation_status"])
}

func TestSanitizeEnumPassesThroughWithoutDefault(t *testing.T) {
	// unflagged enum fields are advisory: off-list values survive as-is
	out := Sanitize(map[string]any{"isLegible": "Probably"}, baseDef(t))
	assert.Equal(t, "Probably", out["isLegible"])

	out = Sanitize(map[string]any{"isLegible": "Yes"}, baseDef(t))
	assert.Equal(t, "Yes", out["isLegible"])
}

func TestSanitizeNumber(t *testing.T) {
	def := schema.NewRegistry().MustGet(constants.TemplateIRSW2)

	out := Sanitize(map[string]any{"box1Wages": "85,400.50"}, def)
	assert.Equal(t, 85400.50, out["box1Wages"])

	out = Sanitize(map[string]any{"box1Wages": "$1200"}, def)
	assert.Equal(t, 1200.0, out["box1Wages"])

	// unparseable numerics survive as the original string
	out = Sanitize(map[string]any{"box1Wages": "eighty-five thousand"}, def)
	assert.Equal(t, "eighty-five thousand", out["box1Wages"])
}

func TestSanitizeStringCoercion(t *testing.T) {
	out := Sanitize(map[string]any{"issuerName": 12345}, baseDef(t))
	assert.Equal(t, "12345", out["issuerName"])
}

func TestSanitizeIdempotent(t *testing.T) {
	in := map[string]any{
		"documentType": "1099",
		"documentDate": "2023-04-01",
		"isLegible":    "Yes",
	}
	def := baseDef(t)
	once := Sanitize(in, def)
	twice := Sanitize(once, def)
	assert.Equal(t, once, twice)
}
