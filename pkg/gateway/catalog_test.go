package gateway_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/flowguard/pkg/gateway"
	"github.com/entrhq/flowguard/pkg/gateway/gatewaytest"
)

func newCatalog(t *testing.T) (*gateway.Catalog, *gatewaytest.Server) {
	t.Helper()
	server := gatewaytest.NewServer()
	t.Cleanup(server.Close)

	client := gateway.NewClient(server.APIURL())
	require.NoError(t, client.Init())
	t.Cleanup(func() { _ = client.Dispose() })

	return gateway.NewCatalog(client), server
}

func TestCatalog_Products(t *testing.T) {
	catalog, _ := newCatalog(t)

	env, err := catalog.Products(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200, env.TransportStatus)
	assert.Equal(t, 200, env.Code())

	products, err := gateway.Products(env)
	require.NoError(t, err)
	require.NotEmpty(t, products)
	first := products[0]
	assert.NotZero(t, first.ID)
	assert.NotEmpty(t, first.Name)
	assert.NotEmpty(t, first.Price)
	assert.NotEmpty(t, first.Brand)
	assert.NotEmpty(t, first.Category.Category)
}

func TestCatalog_Search(t *testing.T) {
	catalog, _ := newCatalog(t)
	ctx := context.Background()

	env, err := catalog.Search(ctx, "top")
	require.NoError(t, err)
	products, err := gateway.Products(env)
	require.NoError(t, err)
	require.NotEmpty(t, products)
	for _, p := range products {
		assert.True(t, p.Matches("top"), "product %q does not match", p.Name)
	}

	env, err = catalog.Search(ctx, "nonexistentproduct12345xyz")
	require.NoError(t, err)
	assert.Equal(t, 200, env.Code())
	products, err = gateway.Products(env)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestCatalog_SearchMissingTerm(t *testing.T) {
	catalog, _ := newCatalog(t)

	env, err := catalog.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 400, env.Code())
	assert.Equal(t, "Bad request, search_product parameter is missing in POST request.", env.Message())

	_, err = gateway.Products(env)
	assert.Error(t, err)
}

func TestCatalog_Brands(t *testing.T) {
	catalog, _ := newCatalog(t)

	env, err := catalog.Brands(context.Background())
	require.NoError(t, err)
	brands, err := gateway.Brands(env)
	require.NoError(t, err)
	require.NotEmpty(t, brands)
	assert.NotZero(t, brands[0].ID)
	assert.NotEmpty(t, brands[0].Brand)
}

func TestCatalog_ShapeValidation(t *testing.T) {
	catalog, server := newCatalog(t)
	ctx := context.Background()

	server.Fail("/api/productsList", http.StatusOK, `{"responseCode": 200, "products": [{"id": "one"}]}`)
	env, err := catalog.Products(ctx)
	require.NoError(t, err)
	_, err = gateway.Products(env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected response shape")

	server.Fail("/api/brandsList", http.StatusBadGateway, "<html><body>Bad Gateway</body></html>")
	env, err = catalog.Brands(ctx)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, env.TransportStatus)
	assert.Equal(t, "Bad Gateway", env.Text())
	_, err = gateway.Brands(env)
	assert.Error(t, err)
}

func TestCatalog_MethodNotSupported(t *testing.T) {
	server := gatewaytest.NewServer()
	defer server.Close()

	client := gateway.NewClient(server.APIURL())
	require.NoError(t, client.Init())
	defer client.Dispose()

	env, err := client.Post(context.Background(), "productsList", nil)
	require.NoError(t, err)
	assert.Equal(t, 200, env.TransportStatus)
	assert.Equal(t, 405, env.Code())
	assert.Equal(t, "This request method is not supported.", env.Message())
}
