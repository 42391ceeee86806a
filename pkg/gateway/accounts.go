package gateway

import (
	"context"
	"fmt"
)

// Account holds the form fields accepted by the account endpoints.
// Empty fields are omitted from the request.
type Account struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Title        string `json:"title"`
	BirthDate    string `json:"birth_date"`
	BirthMonth   string `json:"birth_month"`
	BirthYear    string `json:"birth_year"`
	FirstName    string `json:"firstname"`
	LastName     string `json:"lastname"`
	Company      string `json:"company"`
	Address1     string `json:"address1"`
	Address2     string `json:"address2"`
	Country      string `json:"country"`
	Zipcode      string `json:"zipcode"`
	State        string `json:"state"`
	City         string `json:"city"`
	MobileNumber string `json:"mobile_number"`
}

// Form renders the account as form fields.
func (a Account) Form() map[string]string {
	fields := map[string]string{
		"name":          a.Name,
		"email":         a.Email,
		"password":      a.Password,
		"title":         a.Title,
		"birth_date":    a.BirthDate,
		"birth_month":   a.BirthMonth,
		"birth_year":    a.BirthYear,
		"firstname":     a.FirstName,
		"lastname":      a.LastName,
		"company":       a.Company,
		"address1":      a.Address1,
		"address2":      a.Address2,
		"country":       a.Country,
		"zipcode":       a.Zipcode,
		"state":         a.State,
		"city":          a.City,
		"mobile_number": a.MobileNumber,
	}
	for k, v := range fields {
		if v == "" {
			delete(fields, k)
		}
	}
	return fields
}

// UserDetail is the account record returned by DetailByEmail.
type UserDetail struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Title     string `json:"title"`
	BirthDay  string `json:"birth_day"`
	BirthMon  string `json:"birth_month"`
	BirthYear string `json:"birth_year"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	Country   string `json:"country"`
	State     string `json:"state"`
	City      string `json:"city"`
	Zipcode   string `json:"zipcode"`
}

// Accounts exposes the account endpoints of the backend.
type Accounts struct {
	client *Client
}

// NewAccounts wraps an initialized or uninitialized client.
func NewAccounts(client *Client) *Accounts {
	return &Accounts{client: client}
}

// Client returns the underlying gateway client.
func (a *Accounts) Client() *Client {
	return a.client
}

// Create registers a new account.
func (a *Accounts) Create(ctx context.Context, account Account) (*Envelope, error) {
	return a.client.Post(ctx, "createAccount", account.Form())
}

// VerifyLogin checks a credential pair. Unknown emails and wrong passwords
// produce the same envelope.
func (a *Accounts) VerifyLogin(ctx context.Context, email, password string) (*Envelope, error) {
	return a.client.Post(ctx, "verifyLogin", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Delete removes an account.
func (a *Accounts) Delete(ctx context.Context, email, password string) (*Envelope, error) {
	return a.client.Delete(ctx, "deleteAccount", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Update replaces the details of an existing account.
func (a *Accounts) Update(ctx context.Context, account Account) (*Envelope, error) {
	return a.client.Put(ctx, "updateAccount", account.Form())
}

// DetailByEmail fetches the account record for an email.
func (a *Accounts) DetailByEmail(ctx context.Context, email string) (*Envelope, error) {
	return a.client.Get(ctx, "getUserDetailByEmail", map[string]string{"email": email})
}

// User decodes the account record of a DetailByEmail envelope.
func User(env *Envelope) (*UserDetail, error) {
	var payload struct {
		User *UserDetail `json:"user"`
	}
	if err := env.Decode(&payload); err != nil {
		return nil, err
	}
	if payload.User == nil {
		return nil, fmt.Errorf("response has no user (code %d): %s", env.Code(), env.Message())
	}
	return payload.User, nil
}
