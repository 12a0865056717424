package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
	}{
		{name: "simple address", email: "clerk@lambeth.gov.uk"},
		{name: "mixed case normalizes", email: "Clerk@Lambeth.gov.uk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnonymizeEmail(tt.email)
			assert.NotEmpty(t, got)
			assert.NotContains(t, got, "@")
			assert.Contains(t, got, "user:")
		})
	}

	// Same address in different case must hash identically.
	assert.Equal(t, AnonymizeEmail("a@b.com"), AnonymizeEmail("A@B.COM"))

	// Empty input produces empty output, not a hash of "".
	assert.Empty(t, AnonymizeEmail(""))
}

func TestExtractDomain(t *testing.T) {
	assert.Equal(t, "lambeth.gov.uk", ExtractDomain("clerk@lambeth.gov.uk"))
	assert.Empty(t, ExtractDomain("not-an-email"))
	assert.Empty(t, ExtractDomain(""))
	assert.Empty(t, ExtractDomain("a@b@c"))
}

func TestErrWithNil(t *testing.T) {
	attr := Err(nil)
	// Empty group attrs are dropped by slog handlers.
	assert.Equal(t, "", attr.Key)
}

func TestSetupLevels(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "Warn", "error", "bogus"} {
		logger := Setup(level, true)
		assert.NotNil(t, logger)
	}
}
