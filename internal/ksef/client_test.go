package ksef_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/ksef-sync/internal/ksef"
	"github.com/rezonia/ksef-sync/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *ksef.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return ksef.NewClient(model.EnvTest, ksef.WithBaseURL(srv.URL), ksef.WithHTTPClient(srv.Client()))
}

func TestEnvironmentBaseURLs(t *testing.T) {
	assert.Equal(t, "https://ksef.mf.gov.pl/api", model.EnvProd.BaseURL())
	assert.Equal(t, "https://ksef-test.mf.gov.pl/api", model.EnvTest.BaseURL())
	assert.Equal(t, "https://ksef-demo.mf.gov.pl/api", model.EnvDemo.BaseURL())
	// Entities without an explicit environment behave like test
	assert.Equal(t, "https://ksef-test.mf.gov.pl/api", model.Environment("").BaseURL())
}

func TestAuthenticateToken(t *testing.T) {
	var gotBody map[string]string
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/token", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]string{
			"token":  "session-token-1",
			"expiry": "2024-06-01T12:00:00Z",
		})
	})

	session, err := client.AuthenticateToken(context.Background(), "ident-1", "auth-token")
	require.NoError(t, err)

	assert.Equal(t, "session-token-1", session.Token)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), session.Expiry)
	assert.Equal(t, "ident-1", gotBody["identifier"])
	assert.Equal(t, "auth-token", gotBody["token"])

	// Auth endpoints never carry a bearer token
	assert.Empty(t, gotAuth)
	// The client adopts the new session token
	assert.Equal(t, "session-token-1", client.Token())
}

func TestAuthenticatePassword_DefaultExpiry(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "1111111111", body["nip"])
		assert.Equal(t, "secret", body["password"])
		// No expiry in the response
		json.NewEncoder(w).Encode(map[string]string{"token": "pw-session"})
	})

	before := time.Now()
	session, err := client.AuthenticatePassword(context.Background(), "1111111111", "secret")
	require.NoError(t, err)

	assert.Equal(t, "pw-session", session.Token)
	assert.WithinDuration(t, before.Add(ksef.DefaultTokenTTL), session.Expiry, 5*time.Second)
}

func TestAuthenticate_SpaceSeparatedExpiry(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"token":  "session-token-2",
			"expiry": "2024-06-01 12:00:00",
		})
	})

	session, err := client.AuthenticateToken(context.Background(), "ident", "tok")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), session.Expiry)
}

func TestAuthenticate_Failure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid credentials"})
	})

	_, err := client.AuthenticateToken(context.Background(), "ident", "bad")
	require.Error(t, err)

	var authErr *model.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "token", authErr.Method)
}

func TestAuthenticate_RejectedWithoutToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// HTTP 200 but no token in the body
		json.NewEncoder(w).Encode(map[string]string{"error": "account locked"})
	})

	_, err := client.AuthenticatePassword(context.Background(), "1111111111", "pw")
	require.Error(t, err)

	var authErr *model.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Message, "account locked")
}

func TestListInvoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/invoices/list", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "2024-01-01", q.Get("dateFrom"))
		assert.Equal(t, "2024-01-31", q.Get("dateTo"))
		assert.Equal(t, "50", q.Get("pageSize"))
		assert.Equal(t, "2", q.Get("pageNumber"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"invoices": []map[string]string{
				{"ksefReferenceNumber": "REF-1"},
				{"ksefReferenceNumber": "REF-2"},
			},
			"totalCount":   120,
			"hasMorePages": true,
		})
	})
	client.SetToken("tok")

	result, err := client.ListInvoices(context.Background(), ksef.ListQuery{
		DateFrom:   "2024-01-01",
		DateTo:     "2024-01-31",
		PageSize:   50,
		PageNumber: 2,
	})
	require.NoError(t, err)

	require.Len(t, result.Items, 2)
	assert.Equal(t, "REF-1", result.Items[0].ReferenceNumber)
	assert.Equal(t, 120, result.TotalCount)
	assert.True(t, result.HasMorePages)
}

func TestListInvoices_ClampsPagination(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "100", q.Get("pageSize"), "oversized page clamped to 100")
		assert.Equal(t, "1", q.Get("pageNumber"), "page number floored to 1")
		assert.NotEmpty(t, q.Get("dateFrom"))
		assert.NotEmpty(t, q.Get("dateTo"))
		json.NewEncoder(w).Encode(map[string]interface{}{"invoices": []interface{}{}})
	})
	client.SetToken("tok")

	_, err := client.ListInvoices(context.Background(), ksef.ListQuery{
		PageSize:   500,
		PageNumber: -3,
	})
	require.NoError(t, err)
}

func TestGetInvoiceXML(t *testing.T) {
	raw := []byte(`<?xml version="1.0"?><Faktura>raw bytes, not JSON</Faktura>`)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/invoices/REF-42/xml", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write(raw)
	})
	client.SetToken("tok")

	got, err := client.GetInvoiceXML(context.Background(), "REF-42")
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestGetInvoiceXML_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "invoice not found"})
	})
	client.SetToken("tok")

	_, err := client.GetInvoiceXML(context.Background(), "MISSING")
	require.Error(t, err)

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "invoice not found", apiErr.Message)
}

func TestTransportErrorNormalized(t *testing.T) {
	// Point at a server that is already closed
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := ksef.NewClient(model.EnvTest, ksef.WithBaseURL(srv.URL))
	client.SetToken("tok")

	_, err := client.ListInvoices(context.Background(), ksef.ListQuery{})
	require.Error(t, err)

	// Transport failures share the API error shape with HTTP errors
	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.StatusCode)
}

func TestWithTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]interface{}{"invoices": []interface{}{}})
	}))
	t.Cleanup(srv.Close)

	client := ksef.NewClient(model.EnvTest,
		ksef.WithBaseURL(srv.URL),
		ksef.WithTimeout(20*time.Millisecond))
	client.SetToken("tok")
	require.Equal(t, 20*time.Millisecond, client.Timeout())

	_, err := client.ListInvoices(context.Background(), ksef.ListQuery{})
	require.Error(t, err)

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.StatusCode)
}

func TestSessionStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/status", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]bool{"active": true})
	})
	client.SetToken("tok")

	active, err := client.SessionStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, active)
}

func TestSessionStatus_NoToken(t *testing.T) {
	client := ksef.NewClient(model.EnvTest)
	active, err := client.SessionStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, active)
}
