package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserHashesPassword(t *testing.T) {
	user, err := CreateUser("matsuo", "matsuo@example.jp", "himitsu-dayo-1")
	require.NoError(t, err)

	assert.NotEqual(t, "himitsu-dayo-1", user.Password)
	assert.True(t, user.CheckPassword("himitsu-dayo-1"))
	assert.False(t, user.CheckPassword("chigau-password"))
	assert.Equal(t, ROLE_USER, user.Role)
	assert.Equal(t, STATUS_INACTIVE, user.Status)
}

func TestCreateUserValidation(t *testing.T) {
	_, err := CreateUser("matsuo", "not-an-email", "himitsu-dayo-1")
	assert.Error(t, err)

	_, err = CreateUser("", "matsuo@example.jp", "himitsu-dayo-1")
	assert.Error(t, err)
}

func TestUserEntitlementHelpers(t *testing.T) {
	var user User
	assert.False(t, user.HasStripeCustomer())
	assert.False(t, user.HasStripeSubscription())

	cus := "cus_123"
	sub := "sub_456"
	user.StripeCustomerID = &cus
	user.StripeSubscriptionID = &sub
	assert.True(t, user.HasStripeCustomer())
	assert.True(t, user.HasStripeSubscription())

	empty := ""
	user.StripeCustomerID = &empty
	assert.False(t, user.HasStripeCustomer())
}

func TestGenerateActivationToken(t *testing.T) {
	var user User
	require.NoError(t, user.GenerateActivationToken())
	assert.NotEmpty(t, user.ActivationToken)
	assert.NotNil(t, user.ActivationSentAt)

	first := user.ActivationToken
	require.NoError(t, user.GenerateActivationToken())
	assert.NotEqual(t, first, user.ActivationToken)
}

func TestNormalizeThreadPair(t *testing.T) {
	a, b := NormalizeThreadPair(9, 3)
	assert.Equal(t, uint(3), a)
	assert.Equal(t, uint(9), b)

	a, b = NormalizeThreadPair(3, 9)
	assert.Equal(t, uint(3), a)
	assert.Equal(t, uint(9), b)
}
