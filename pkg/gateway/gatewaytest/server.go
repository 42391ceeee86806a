// Package gatewaytest provides an in-memory fake of the backend surface for
// tests. It mirrors the live contract: every response is HTTP 200 with a JSON
// body served as text/html, and the outcome is carried by responseCode.
package gatewaytest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/entrhq/flowguard/pkg/gateway"
)

// Call is a request observed by the server.
type Call struct {
	Method string
	Path   string
	Form   url.Values
}

// Server is a fake backend. Accounts live in memory and are keyed by email.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]gateway.Account
	calls    []Call
	faults   map[string]fault
	products []gateway.Product
	brands   []gateway.Brand
}

type fault struct {
	status int
	body   string
}

// NewServer starts a fake backend seeded with a small catalog.
func NewServer() *Server {
	s := &Server{
		accounts: make(map[string]gateway.Account),
		faults:   make(map[string]fault),
		products: defaultProducts(),
		brands:   defaultBrands(),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/createAccount", s.handleCreateAccount)
	mux.HandleFunc("/api/verifyLogin", s.handleVerifyLogin)
	mux.HandleFunc("/api/deleteAccount", s.handleDeleteAccount)
	mux.HandleFunc("/api/updateAccount", s.handleUpdateAccount)
	mux.HandleFunc("/api/getUserDetailByEmail", s.handleUserDetail)
	mux.HandleFunc("/api/productsList", s.handleProducts)
	mux.HandleFunc("/api/searchProduct", s.handleSearch)
	mux.HandleFunc("/api/brandsList", s.handleBrands)
	s.Server = httptest.NewServer(s.record(mux))
	return s
}

// APIURL returns the API base address of the server.
func (s *Server) APIURL() string {
	return s.URL + "/api/"
}

// Seed stores an account directly, bypassing the API.
func (s *Server) Seed(account gateway.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.Email] = account
}

// HasAccount reports whether an account with the email exists.
func (s *Server) HasAccount(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.accounts[email]
	return ok
}

// AccountCount returns the number of stored accounts.
func (s *Server) AccountCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

// Calls returns the requests observed for a path, in arrival order.
func (s *Server) Calls(path string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// Fail makes every request to path answer with the given status and raw body.
func (s *Server) Fail(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[path] = fault{status: status, body: body}
}

// Heal removes a fault installed by Fail.
func (s *Server) Heal(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faults, path)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		form := formValues(r)
		s.mu.Lock()
		s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, Form: form})
		f, faulted := s.faults[r.URL.Path]
		s.mu.Unlock()

		if faulted {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// formValues parses form bodies for every method, including DELETE, plus
// the query string.
func formValues(r *http.Request) url.Values {
	values := r.URL.Query()
	if r.Body == nil {
		return values
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return values
	}
	r.Body = io.NopCloser(strings.NewReader(string(raw)))
	parsed, err := url.ParseQuery(string(raw))
	if err != nil {
		return values
	}
	for k, v := range parsed {
		values[k] = v
	}
	return values
}

func reply(w http.ResponseWriter, payload map[string]interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}

func message(w http.ResponseWriter, code int, msg string) {
	reply(w, map[string]interface{}{"responseCode": code, "message": msg})
}

func methodNotSupported(w http.ResponseWriter) {
	message(w, 405, "This request method is not supported.")
}

func missing(w http.ResponseWriter, method, field string) {
	message(w, 400, "Bad request, "+field+" parameter is missing in "+method+" request.")
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotSupported(w)
		return
	}
	form := formValues(r)
	for _, field := range []string{"name", "email", "password"} {
		if form.Get(field) == "" {
			missing(w, "POST", field)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[form.Get("email")]; exists {
		message(w, 400, "Email already exists!")
		return
	}
	s.accounts[form.Get("email")] = accountFromForm(form)
	message(w, 201, "User created!")
}

func (s *Server) handleVerifyLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotSupported(w)
		return
	}
	form := formValues(r)
	if form.Get("email") == "" || form.Get("password") == "" {
		message(w, 400, "Bad request, email or password parameter is missing in POST request.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[form.Get("email")]
	if !ok || account.Password != form.Get("password") {
		message(w, 404, "User not found!")
		return
	}
	message(w, 200, "User exists!")
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotSupported(w)
		return
	}
	form := formValues(r)
	for _, field := range []string{"email", "password"} {
		if form.Get(field) == "" {
			missing(w, "DELETE", field)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[form.Get("email")]
	if !ok || account.Password != form.Get("password") {
		message(w, 404, "Account not found!")
		return
	}
	delete(s.accounts, form.Get("email"))
	message(w, 200, "Account deleted!")
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotSupported(w)
		return
	}
	form := formValues(r)
	for _, field := range []string{"email", "password"} {
		if form.Get(field) == "" {
			missing(w, "PUT", field)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[form.Get("email")]
	if !ok || account.Password != form.Get("password") {
		message(w, 404, "Account not found!")
		return
	}
	updated := accountFromForm(form)
	if updated.Name == "" {
		updated.Name = account.Name
	}
	s.accounts[form.Get("email")] = updated
	message(w, 200, "User updated!")
}

func (s *Server) handleUserDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotSupported(w)
		return
	}
	email := r.URL.Query().Get("email")
	if email == "" {
		missing(w, "GET", "email")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[email]
	if !ok {
		message(w, 404, "Account not found with this email, try another email!")
		return
	}
	reply(w, map[string]interface{}{
		"responseCode": 200,
		"user": map[string]interface{}{
			"id":          len(s.accounts),
			"name":        account.Name,
			"email":       account.Email,
			"title":       account.Title,
			"birth_day":   account.BirthDate,
			"birth_month": account.BirthMonth,
			"birth_year":  account.BirthYear,
			"first_name":  account.FirstName,
			"last_name":   account.LastName,
			"company":     account.Company,
			"address1":    account.Address1,
			"address2":    account.Address2,
			"country":     account.Country,
			"state":       account.State,
			"city":        account.City,
			"zipcode":     account.Zipcode,
		},
	})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotSupported(w)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	reply(w, map[string]interface{}{"responseCode": 200, "products": s.products})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotSupported(w)
		return
	}
	term := formValues(r).Get("search_product")
	if term == "" {
		missing(w, "POST", "search_product")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	matches := []gateway.Product{}
	for _, p := range s.products {
		if p.Matches(term) {
			matches = append(matches, p)
		}
	}
	reply(w, map[string]interface{}{"responseCode": 200, "products": matches})
}

func (s *Server) handleBrands(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotSupported(w)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	reply(w, map[string]interface{}{"responseCode": 200, "brands": s.brands})
}

func accountFromForm(form url.Values) gateway.Account {
	return gateway.Account{
		Name:         form.Get("name"),
		Email:        form.Get("email"),
		Password:     form.Get("password"),
		Title:        form.Get("title"),
		BirthDate:    form.Get("birth_date"),
		BirthMonth:   form.Get("birth_month"),
		BirthYear:    form.Get("birth_year"),
		FirstName:    form.Get("firstname"),
		LastName:     form.Get("lastname"),
		Company:      form.Get("company"),
		Address1:     form.Get("address1"),
		Address2:     form.Get("address2"),
		Country:      form.Get("country"),
		Zipcode:      form.Get("zipcode"),
		State:        form.Get("state"),
		City:         form.Get("city"),
		MobileNumber: form.Get("mobile_number"),
	}
}

func product(id int, name, price, brand, userType, category string) gateway.Product {
	p := gateway.Product{ID: id, Name: name, Price: price, Brand: brand}
	p.Category.UserType.UserType = userType
	p.Category.Category = category
	return p
}

func defaultProducts() []gateway.Product {
	return []gateway.Product{
		product(1, "Blue Top", "Rs. 500", "Polo", "Women", "Tops"),
		product(2, "Men Tshirt", "Rs. 400", "H&M", "Men", "Tshirts"),
		product(3, "Sleeveless Dress", "Rs. 1000", "Madame", "Women", "Dress"),
		product(4, "Stylish Dress", "Rs. 1500", "Madame", "Women", "Dress"),
		product(5, "Winter Top", "Rs. 600", "Mast & Harbour", "Women", "Tops"),
		product(6, "Summer White Top", "Rs. 400", "H&M", "Women", "Tops"),
	}
}

func defaultBrands() []gateway.Brand {
	return []gateway.Brand{
		{ID: 1, Brand: "Polo"},
		{ID: 2, Brand: "H&M"},
		{ID: 3, Brand: "Madame"},
		{ID: 4, Brand: "Mast & Harbour"},
	}
}
