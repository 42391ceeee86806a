package suites

import (
	"fmt"

	"github.com/entrhq/flowguard/pkg/gateway"
	"github.com/entrhq/flowguard/pkg/pages"
	"github.com/entrhq/flowguard/pkg/scenario"
)

// APIUser returns a complete account unique to this run, as created
// through the API.
func APIUser(env *scenario.Env, prefix string) gateway.Account {
	email := env.Email(prefix)
	return gateway.Account{
		Name:         fmt.Sprintf("%s_user", prefix),
		Email:        email,
		Password:     "Test@123",
		Title:        "Mr",
		BirthDate:    "15",
		BirthMonth:   "6",
		BirthYear:    "1990",
		FirstName:    "Test",
		LastName:     "User",
		Company:      "Test Company",
		Address1:     "123 Test Street",
		Address2:     "Apt 4B",
		Country:      "United States",
		Zipcode:      "12345",
		State:        "California",
		City:         "Los Angeles",
		MobileNumber: "1234567890",
	}
}

// UIUser returns an account to register through the signup form. Select
// values are the option values of the form (month "1" is January).
func UIUser(env *scenario.Env, prefix string) gateway.Account {
	return gateway.Account{
		Name:         "Test Setup User",
		Email:        env.Email(prefix),
		Password:     "Password123!",
		Title:        "Mr",
		BirthDate:    "10",
		BirthMonth:   "1",
		BirthYear:    "1990",
		FirstName:    "Test",
		LastName:     "User",
		Company:      "TestCompany",
		Address1:     "123 Test St",
		Address2:     "Apt 4B",
		Country:      "United States",
		State:        "California",
		City:         "Los Angeles",
		Zipcode:      "90001",
		MobileNumber: "1234567890",
	}
}

// testCard is accepted by the payment form of the application under test.
func testCard(name string) pages.Card {
	return pages.Card{
		Name:        name,
		Number:      "1234567890123456",
		CVC:         "311",
		ExpiryMonth: "12",
		ExpiryYear:  "2025",
	}
}
