package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/chirp/backend/internal/models"
)

func TestValidateRegisterRequest(t *testing.T) {
	v := NewValidator()

	ok := models.RegisterRequest{Handle: "alice_01", DisplayName: "Alice", Email: "a@example.com", Password: "hunter22"}
	require.NoError(t, v.Validate(ok))

	bad := ok
	bad.Handle = "no spaces"
	bad.Email = "nope"
	err := v.Validate(bad)
	require.Error(t, err)
	msgs := Messages(err)
	assert.Equal(t, "handle", msgs["handle"])
	assert.Equal(t, "email", msgs["email"])
	assert.NotContains(t, msgs, "displayName")
}

func TestValidateReportRequest(t *testing.T) {
	v := NewValidator()

	err := v.Validate(models.CreateReportRequest{})
	require.Error(t, err)
	assert.Contains(t, Messages(err), "contentId")
}
