package extraction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearstone/finportal/constants"
	"github.com/clearstone/finportal/internal/schema"
)

func TestSynthesizeFallbackBase(t *testing.T) {
	reg := schema.NewRegistry()
	def := reg.MustGet(constants.TemplateBase)
	doc := DocumentRef{ObjectID: "f1", Name: "2023 W2 acme.pdf"}

	fields := SynthesizeFallback(doc, def, time.Now())
	assert.Equal(t, "W-2", fields["documentType"])
	assert.Nil(t, fields["issuerName"])
}

func TestSynthesizeFallbackBaseUnknown(t *testing.T) {
	reg := schema.NewRegistry()
	def := reg.MustGet(constants.TemplateBase)
	doc := DocumentRef{ObjectID: "f1", Name: "scan0001.pdf"}

	fields := SynthesizeFallback(doc, def, time.Now())
	assert.Equal(t, string(constants.DocUnknown), fields["documentType"])
}

func TestSynthesizeFallbackAddress(t *testing.T) {
	reg := schema.NewRegistry()
	def := reg.MustGet(constants.TemplateAddressValidation)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	fields := SynthesizeFallback(DocumentRef{ObjectID: "f2", Name: "doc.pdf"}, def, now)
	assert.Equal(t, "US", fields["country"])
	assert.Equal(t, constants.ValidationNotValidated, fields["validation_status"])
	assert.Equal(t, "2024-03-15", fields["date_extracted"])
	assert.Equal(t, "", fields["street_address"])
}

func TestSynthesizeFallbackTypeSpecific(t *testing.T) {
	reg := schema.NewRegistry()
	def := reg.MustGet(constants.TemplateIRSW2)

	fields := SynthesizeFallback(DocumentRef{ObjectID: "f3", Name: "w2.pdf"}, def, time.Now())
	require.Len(t, fields, len(def.Fields))
	for _, key := range def.FieldKeys() {
		v, ok := fields[key]
		assert.True(t, ok)
		assert.Nil(t, v)
	}
}
