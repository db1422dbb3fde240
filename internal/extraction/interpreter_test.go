package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpretFieldList(t *testing.T) {
	raw := map[string]any{
		"fields": []any{
			map[string]any{"key": "documentType", "value": "W-2"},
			map[string]any{"key": "taxYear", "value": "2023-01-01"},
		},
	}
	in := Interpret(raw)
	assert.Equal(t, KindValues, in.Kind)
	assert.Equal(t, "W-2", in.Fields["documentType"])
	assert.Equal(t, "2023-01-01", in.Fields["taxYear"])
}

func TestInterpretFieldListEcho(t *testing.T) {
	// prompts and types but no values: the template came back, not data
	raw := map[string]any{
		"fields": []any{
			map[string]any{"key": "documentType", "prompt": "The type of financial document", "type": "enum"},
			map[string]any{"key": "taxYear", "prompt": "The tax year", "type": "date"},
		},
	}
	in := Interpret(raw)
	assert.Equal(t, KindSchemaEcho, in.Kind)
	assert.Empty(t, in.Fields)
}

func TestInterpretDirectObject(t *testing.T) {
	raw := map[string]any{
		"documentType": "1099",
		"issuerName":   "Acme Brokerage",
	}
	in := Interpret(raw)
	assert.Equal(t, KindValues, in.Kind)
	assert.Equal(t, "1099", in.Fields["documentType"])
}

func TestInterpretDirectObjectAllEmpty(t *testing.T) {
	raw := map[string]any{
		"documentType": "",
		"issuerName":   nil,
	}
	in := Interpret(raw)
	assert.Equal(t, KindSchemaEcho, in.Kind)
}

func TestInterpretAnswerObject(t *testing.T) {
	raw := map[string]any{
		"answer": map[string]any{
			"street_address": "12 Elm Street",
			"city":           "Springfield",
		},
		"completion_reason": "done",
	}
	in := Interpret(raw)
	assert.Equal(t, KindValues, in.Kind)
	assert.Equal(t, "12 Elm Street", in.Fields["street_address"])
}

func TestInterpretAnswerJSONString(t *testing.T) {
	raw := map[string]any{
		"answer": `{"documentType": "W-2", "taxYear": "2023-01-01"}`,
	}
	in := Interpret(raw)
	assert.Equal(t, KindValues, in.Kind)
	assert.Equal(t, "W-2", in.Fields["documentType"])
}

func TestInterpretAnswerFreeText(t *testing.T) {
	raw := map[string]any{
		"answer": "This appears to be a W-2 for tax year 2023.",
	}
	in := Interpret(raw)
	require.Equal(t, KindValues, in.Kind)
	assert.Contains(t, in.Fields["extracted_text"], "W-2")
}

func TestInterpretLegacyEntries(t *testing.T) {
	raw := map[string]any{
		"entries": []any{
			map[string]any{
				"metadata": map[string]any{
					"documentType": "Account Statement",
					"$template":    "financialDocumentBase",
				},
			},
		},
	}
	in := Interpret(raw)
	assert.Equal(t, KindValues, in.Kind)
	assert.Equal(t, "Account Statement", in.Fields["documentType"])
	assert.NotContains(t, in.Fields, "$template")
}

func TestInterpretBestEffortFiltering(t *testing.T) {
	raw := map[string]any{
		"completion_reason": "done",
		"ai_agent_info":     map[string]any{"models": []any{"m"}},
		"created_at":        "2024-01-01T00:00:00Z",
		"documentType":      "Trust Document",
	}
	in := Interpret(raw)
	assert.Equal(t, KindValues, in.Kind)
	assert.Equal(t, map[string]any{"documentType": "Trust Document"}, in.Fields)
}

func TestInterpretBookkeepingOnly(t *testing.T) {
	raw := map[string]any{
		"completion_reason": "no_data",
		"created_at":        "2024-01-01T00:00:00Z",
	}
	in := Interpret(raw)
	assert.Equal(t, KindSchemaEcho, in.Kind)
}

func TestInterpretEmpty(t *testing.T) {
	in := Interpret(map[string]any{})
	assert.Equal(t, KindUnrecognized, in.Kind)
	assert.NotNil(t, in.Fields)
}

func TestInterpretFieldListPrecedesDirectKeys(t *testing.T) {
	// a fields list wins even when sibling keys look like data
	raw := map[string]any{
		"fields": []any{
			map[string]any{"key": "documentType", "value": "1040"},
		},
		"documentType": "stale",
	}
	in := Interpret(raw)
	assert.Equal(t, KindValues, in.Kind)
	assert.Equal(t, "1040", in.Fields["documentType"])
}
