package gateway_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/flowguard/pkg/gateway"
	"github.com/entrhq/flowguard/pkg/gateway/gatewaytest"
)

func newAccounts(t *testing.T) (*gateway.Accounts, *gatewaytest.Server) {
	t.Helper()
	server := gatewaytest.NewServer()
	t.Cleanup(server.Close)

	client := gateway.NewClient(server.APIURL())
	require.NoError(t, client.Init())
	t.Cleanup(func() { _ = client.Dispose() })

	return gateway.NewAccounts(client), server
}

func account(email string) gateway.Account {
	return gateway.Account{
		Name:       "Test User",
		Email:      email,
		Password:   "Test@123",
		Title:      "Mr",
		FirstName:  "Test",
		LastName:   "User",
		Address1:   "123 Test Street",
		Country:    "United States",
		State:      "California",
		City:       "Los Angeles",
		Zipcode:    "12345",
		BirthDate:  "15",
		BirthMonth: "6",
		BirthYear:  "1990",
	}
}

func assertEnvelope(t *testing.T, env *gateway.Envelope, status, code int, message string) {
	t.Helper()
	require.NotNil(t, env)
	assert.Equal(t, status, env.TransportStatus)
	assert.Equal(t, code, env.Code())
	assert.Equal(t, message, env.Message())
	assert.NoError(t, gateway.ValidateMessage(env))
}

func TestAccounts_CreateThenDuplicate(t *testing.T) {
	accounts, server := newAccounts(t)
	ctx := context.Background()

	env, err := accounts.Create(ctx, account("e1@test.com"))
	require.NoError(t, err)
	assertEnvelope(t, env, 200, 201, "User created!")
	assert.True(t, env.Affirmative())

	env, err = accounts.Create(ctx, account("e1@test.com"))
	require.NoError(t, err)
	assertEnvelope(t, env, 200, 400, "Email already exists!")
	assert.False(t, env.Affirmative())
	assert.Equal(t, "Email already exists!", env.Failure().Message)

	assert.Equal(t, 1, server.AccountCount())
}

func TestAccounts_LoginFailureParity(t *testing.T) {
	accounts, _ := newAccounts(t)
	ctx := context.Background()

	_, err := accounts.Create(ctx, account("known@test.com"))
	require.NoError(t, err)

	unknown, err := accounts.VerifyLogin(ctx, "nonexistent@test.com", "wrongpassword")
	require.NoError(t, err)
	wrongPassword, err := accounts.VerifyLogin(ctx, "known@test.com", "WrongPassword123")
	require.NoError(t, err)

	assertEnvelope(t, unknown, 200, 404, "User not found!")
	assertEnvelope(t, wrongPassword, 200, 404, "User not found!")
	assert.Equal(t, unknown.Body, wrongPassword.Body)

	valid, err := accounts.VerifyLogin(ctx, "known@test.com", "Test@123")
	require.NoError(t, err)
	assertEnvelope(t, valid, 200, 200, "User exists!")
}

func TestAccounts_MissingRequiredField(t *testing.T) {
	accounts, server := newAccounts(t)

	env, err := accounts.Create(context.Background(), gateway.Account{Email: "missing_fields@test.com"})
	require.NoError(t, err)
	assertEnvelope(t, env, 200, 400, "Bad request, name parameter is missing in POST request.")
	assert.Equal(t, 0, server.AccountCount())
}

func TestAccounts_Delete(t *testing.T) {
	accounts, server := newAccounts(t)
	ctx := context.Background()

	_, err := accounts.Create(ctx, account("delete@test.com"))
	require.NoError(t, err)

	env, err := accounts.Delete(ctx, "delete@test.com", "Test@123")
	require.NoError(t, err)
	assertEnvelope(t, env, 200, 200, "Account deleted!")
	assert.False(t, server.HasAccount("delete@test.com"))

	env, err = accounts.Delete(ctx, "delete@test.com", "Test@123")
	require.NoError(t, err)
	assertEnvelope(t, env, 200, 404, "Account not found!")
}

func TestAccounts_UpdateAndDetail(t *testing.T) {
	accounts, _ := newAccounts(t)
	ctx := context.Background()

	original := account("detail@test.com")
	_, err := accounts.Create(ctx, original)
	require.NoError(t, err)

	updated := original
	updated.City = "San Diego"
	env, err := accounts.Update(ctx, updated)
	require.NoError(t, err)
	assertEnvelope(t, env, 200, 200, "User updated!")

	env, err = accounts.DetailByEmail(ctx, "detail@test.com")
	require.NoError(t, err)
	user, err := gateway.User(env)
	require.NoError(t, err)
	assert.Equal(t, "detail@test.com", user.Email)
	assert.Equal(t, "San Diego", user.City)

	env, err = accounts.DetailByEmail(ctx, "nobody@test.com")
	require.NoError(t, err)
	assert.Equal(t, 404, env.Code())
	_, err = gateway.User(env)
	assert.Error(t, err)
}

func TestAccount_FormOmitsEmptyFields(t *testing.T) {
	form := gateway.Account{Email: "a@test.com", Password: "pw"}.Form()
	assert.Equal(t, map[string]string{"email": "a@test.com", "password": "pw"}, form)
}
