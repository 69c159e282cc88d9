package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	signer := NewSigner("test-secret")

	token, err := signer.Issue("ops-desk", []string{RoleOperator}, time.Hour)
	require.NoError(t, err)

	claims, err := signer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "ops-desk", claims.Subject)
	assert.True(t, claims.HasRole(RoleOperator))
	assert.False(t, claims.HasRole("viewer"))
}

func TestValidateRejectsOtherSecret(t *testing.T) {
	token, err := NewSigner("one").Issue("ops", []string{RoleOperator}, time.Hour)
	require.NoError(t, err)

	_, err = NewSigner("two").Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	signer := NewSigner("test-secret")
	signer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := signer.Issue("ops", []string{RoleOperator}, time.Hour)
	require.NoError(t, err)

	signer.now = time.Now
	_, err = signer.Validate(token)
	assert.Error(t, err)
}

func TestIssueRequiresSecret(t *testing.T) {
	_, err := NewSigner("").Issue("ops", nil, time.Hour)
	assert.Error(t, err)
}
