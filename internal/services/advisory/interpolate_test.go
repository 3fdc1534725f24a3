package advisory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpolateBothSyntaxes(t *testing.T) {
	vars := map[string]string{"crop": "Maize", "region": "Centre"}

	assert.Equal(t, "Grow Maize in Centre",
		Interpolate("Grow {{crop}} in ${region}", vars))
	assert.Equal(t, "Grow Maize",
		Interpolate("Grow {{ crop }}", vars), "whitespace inside the braces is tolerated")
}

func TestInterpolateUnknownVarBecomesEmpty(t *testing.T) {
	assert.Equal(t, "Rain:  mm", Interpolate("Rain: {{rainTotal}} mm", map[string]string{}))
	assert.Equal(t, "", Interpolate("", map[string]string{"crop": "Maize"}))
}

func TestSanitizeStripsUndefined(t *testing.T) {
	assert.Equal(t, "Apply fertilizer", Sanitize("Apply fertilizer undefined"))
	assert.Equal(t, "", Sanitize("undefinedundefined"))
	assert.Equal(t, "kept", Sanitize("  kept  "))
}
