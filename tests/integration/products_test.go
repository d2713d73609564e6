//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/nkoval/backoffice/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type productPayload struct {
	ID           int64  `json:"id"`
	SerialNumber int64  `json:"serialNumber"`
	Title        string `json:"title"`
	Type         string `json:"type"`
	IsNew        bool   `json:"isNew"`
	Deleted      bool   `json:"deleted"`
	Price        []struct {
		Value     float64 `json:"value"`
		Symbol    string  `json:"symbol"`
		IsDefault bool    `json:"isDefault"`
	} `json:"price"`
}

type productEnvelope struct {
	Data productPayload `json:"data"`
}

type productListEnvelope struct {
	Data []productPayload `json:"data"`
}

func createProduct(t *testing.T, client *testutil.Client, serial int64, typ string) productPayload {
	t.Helper()

	resp, err := client.POST("/api/v1/products", map[string]interface{}{
		"serialNumber": serial,
		"title":        fmt.Sprintf("Product %d", serial),
		"type":         typ,
		"price": []map[string]interface{}{
			{"value": 100, "symbol": "USD", "isDefault": true},
			{"value": 4100, "symbol": "UAH"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, testutil.ReadBody(t, resp))

	var env productEnvelope
	testutil.DecodeJSON(t, resp, &env)
	return env.Data
}

func TestProducts_RequireAuth(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.GET("/api/v1/products")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestProducts_CreateAndGet(t *testing.T) {
	client := loggedInClient(t, "products-create")

	serial := nextSerial()
	created := createProduct(t, client, serial, "Monitors")
	assert.True(t, created.IsNew, "defaults to new")
	require.Len(t, created.Price, 2)

	resp := mustGET(t, client, fmt.Sprintf("/api/v1/products/%d", created.ID), http.StatusOK)
	var env productEnvelope
	testutil.DecodeJSON(t, resp, &env)
	assert.Equal(t, serial, env.Data.SerialNumber)
}

func TestProducts_GetBySerialNumber(t *testing.T) {
	client := loggedInClient(t, "products-serial")

	serial := nextSerial()
	created := createProduct(t, client, serial, "Phones")

	resp := mustGET(t, client, fmt.Sprintf("/api/v1/products/serial/%d", serial), http.StatusOK)
	var env productEnvelope
	testutil.DecodeJSON(t, resp, &env)
	assert.Equal(t, created.ID, env.Data.ID)

	notFound := mustGET(t, client, "/api/v1/products/serial/987654321", http.StatusNotFound)
	_ = notFound.Body.Close()
}

func TestProducts_FilterByType(t *testing.T) {
	client := loggedInClient(t, "products-filter")

	typ := fmt.Sprintf("Type-%d", nextSerial())
	createProduct(t, client, nextSerial(), typ)
	createProduct(t, client, nextSerial(), "Monitors")

	resp := mustGET(t, client, "/api/v1/products?type="+typ, http.StatusOK)
	var env productListEnvelope
	testutil.DecodeJSON(t, resp, &env)

	require.Len(t, env.Data, 1)
	assert.Equal(t, typ, env.Data[0].Type)
}

func TestProducts_DuplicateSerial(t *testing.T) {
	client := loggedInClient(t, "products-dup")

	serial := nextSerial()
	createProduct(t, client, serial, "Monitors")

	resp, err := client.POST("/api/v1/products", map[string]interface{}{
		"serialNumber": serial,
		"title":        "Clone",
		"type":         "Monitors",
		"price":        []map[string]interface{}{{"value": 1, "symbol": "USD"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestProducts_RejectsMultipleDefaultPrices(t *testing.T) {
	client := loggedInClient(t, "products-prices")

	resp, err := client.POST("/api/v1/products", map[string]interface{}{
		"serialNumber": nextSerial(),
		"title":        "Two defaults",
		"type":         "Monitors",
		"price": []map[string]interface{}{
			{"value": 1, "symbol": "USD", "isDefault": true},
			{"value": 2, "symbol": "EUR", "isDefault": true},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestProducts_Update(t *testing.T) {
	client := loggedInClient(t, "products-update")
	created := createProduct(t, client, nextSerial(), "Monitors")

	resp, err := client.PATCH(fmt.Sprintf("/api/v1/products/%d", created.ID),
		map[string]interface{}{
			"title": "Renamed",
			"price": []map[string]interface{}{{"value": 7, "symbol": "USD", "isDefault": true}},
		})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env productEnvelope
	testutil.DecodeJSON(t, resp, &env)
	assert.Equal(t, "Renamed", env.Data.Title)
	assert.Equal(t, "Monitors", env.Data.Type, "unpatched fields survive")
	require.Len(t, env.Data.Price, 1, "price list replaced wholesale")
	assert.Equal(t, float64(7), env.Data.Price[0].Value)
}

func TestProducts_SoftDeleteLifecycle(t *testing.T) {
	client := loggedInClient(t, "products-lifecycle")

	serial := nextSerial()
	created := createProduct(t, client, serial, "Monitors")

	resp, err := client.DELETE(fmt.Sprintf("/api/v1/products/%d", created.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	notFound := mustGET(t, client, fmt.Sprintf("/api/v1/products/%d", created.ID), http.StatusNotFound)
	_ = notFound.Body.Close()

	// Still holds its serial number while soft-deleted.
	resp, err = client.POST("/api/v1/products", map[string]interface{}{
		"serialNumber": serial,
		"title":        "Squatter",
		"type":         "Monitors",
		"price":        []map[string]interface{}{{"value": 1, "symbol": "USD"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "soft-deleted serial stays reserved")
	_ = resp.Body.Close()

	// Appears in the deleted listing.
	resp = mustGET(t, client, "/api/v1/products/deleted", http.StatusOK)
	var deleted productListEnvelope
	testutil.DecodeJSON(t, resp, &deleted)

	found := false
	for _, p := range deleted.Data {
		if p.ID == created.ID {
			found = true
		}
	}
	assert.True(t, found)

	// Restore brings it back.
	resp, err = client.POST(fmt.Sprintf("/api/v1/products/%d/restore", created.ID), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var restored productEnvelope
	testutil.DecodeJSON(t, resp, &restored)
	assert.False(t, restored.Data.Deleted)
}

func TestProducts_PurgeFreesSerial(t *testing.T) {
	client := loggedInClient(t, "products-purge")

	serial := nextSerial()
	created := createProduct(t, client, serial, "Monitors")

	resp, err := client.DELETE(fmt.Sprintf("/api/v1/products/%d", created.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = client.DELETE(fmt.Sprintf("/api/v1/products/%d/purge", created.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	// After the purge the serial number can be taken again.
	createProduct(t, client, serial, "Monitors")
}
