package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Product is a catalog entry.
type Product struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Price    string   `json:"price"`
	Brand    string   `json:"brand"`
	Category Category `json:"category"`
}

// Category classifies a product.
type Category struct {
	UserType struct {
		UserType string `json:"usertype"`
	} `json:"usertype"`
	Category string `json:"category"`
}

// Brand is a catalog brand.
type Brand struct {
	ID    int    `json:"id"`
	Brand string `json:"brand"`
}

// Catalog exposes the product and brand endpoints of the backend.
type Catalog struct {
	client *Client
}

// NewCatalog wraps a client.
func NewCatalog(client *Client) *Catalog {
	return &Catalog{client: client}
}

// Products lists every product.
func (c *Catalog) Products(ctx context.Context) (*Envelope, error) {
	return c.client.Get(ctx, "productsList", nil)
}

// Search lists products matching a term.
func (c *Catalog) Search(ctx context.Context, term string) (*Envelope, error) {
	return c.client.Post(ctx, "searchProduct", map[string]string{"search_product": term})
}

// Brands lists every brand.
func (c *Catalog) Brands(ctx context.Context) (*Envelope, error) {
	return c.client.Get(ctx, "brandsList", nil)
}

// Products validates and decodes the product list of an envelope.
func Products(env *Envelope) ([]Product, error) {
	if err := validateShape(schemaProducts, env); err != nil {
		return nil, err
	}
	var payload struct {
		Products []Product `json:"products"`
	}
	if err := env.Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Products, nil
}

// Brands validates and decodes the brand list of an envelope.
func Brands(env *Envelope) ([]Brand, error) {
	if err := validateShape(schemaBrands, env); err != nil {
		return nil, err
	}
	var payload struct {
		Brands []Brand `json:"brands"`
	}
	if err := env.Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Brands, nil
}

// ValidateMessage checks that an envelope carries a {responseCode, message} body.
func ValidateMessage(env *Envelope) error {
	return validateShape(schemaMessage, env)
}

// Matches reports whether a product matches a search term by name or category.
func (p Product) Matches(term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Category.Category), term)
}

const (
	schemaMessage  = "flowguard://schemas/message.json"
	schemaProducts = "flowguard://schemas/products.json"
	schemaBrands   = "flowguard://schemas/brands.json"
)

var schemaSources = map[string]string{
	schemaMessage: `{
		"type": "object",
		"required": ["responseCode", "message"],
		"properties": {
			"responseCode": {"type": "integer"},
			"message": {"type": "string"}
		}
	}`,
	schemaProducts: `{
		"type": "object",
		"required": ["responseCode", "products"],
		"properties": {
			"responseCode": {"type": "integer"},
			"products": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["id", "name", "price", "brand", "category"],
					"properties": {
						"id": {"type": "integer"},
						"name": {"type": "string"},
						"price": {"type": "string"},
						"brand": {"type": "string"},
						"category": {
							"type": "object",
							"required": ["category"],
							"properties": {
								"category": {"type": "string"},
								"usertype": {
									"type": "object",
									"properties": {"usertype": {"type": "string"}}
								}
							}
						}
					}
				}
			}
		}
	}`,
	schemaBrands: `{
		"type": "object",
		"required": ["responseCode", "brands"],
		"properties": {
			"responseCode": {"type": "integer"},
			"brands": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["id", "brand"],
					"properties": {
						"id": {"type": "integer"},
						"brand": {"type": "string"}
					}
				}
			}
		}
	}`,
}

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func compileSchemas() (map[string]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		for url, source := range schemaSources {
			if err := compiler.AddResource(url, strings.NewReader(source)); err != nil {
				schemasErr = fmt.Errorf("add schema resource %s: %w", url, err)
				return
			}
		}
		compiled := make(map[string]*jsonschema.Schema, len(schemaSources))
		for url := range schemaSources {
			schema, err := compiler.Compile(url)
			if err != nil {
				schemasErr = fmt.Errorf("compile schema %s: %w", url, err)
				return
			}
			compiled[url] = schema
		}
		schemas = compiled
	})
	return schemas, schemasErr
}

func validateShape(url string, env *Envelope) error {
	compiled, err := compileSchemas()
	if err != nil {
		return err
	}
	if !env.Structured() {
		return fmt.Errorf("response body is not structured (status %d)", env.TransportStatus)
	}

	var payload interface{}
	if err := json.Unmarshal(bytes.TrimSpace(env.Raw()), &payload); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	if err := compiled[url].Validate(payload); err != nil {
		return fmt.Errorf("unexpected response shape: %w", err)
	}
	return nil
}
