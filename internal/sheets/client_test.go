package sheets

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/autoescola-ideal/sistema-interno/internal/config"
)

// ---- helpers -----------------------------------------------------------------

// newTestClient builds a Client whose API calls go to a local test server.
func newTestClient(t *testing.T, handler http.Handler, timeout time.Duration) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	svc, err := sheetsapi.NewService(context.Background(),
		option.WithoutAuthentication(),
		option.WithEndpoint(ts.URL))
	require.NoError(t, err)

	return &Client{svc: svc, fetchTimeout: timeout}
}

// writeServiceAccountKey writes a syntactically valid service account JSON key
// file so New can be exercised without real credentials.
func writeServiceAccountKey(t *testing.T) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})

	creds := map[string]string{
		"type":           "service_account",
		"project_id":     "test-project",
		"private_key_id": "key-1",
		"private_key":    string(keyPEM),
		"client_email":   "statements@test-project.iam.gserviceaccount.com",
		"token_uri":      "https://oauth2.googleapis.com/token",
	}
	raw, err := json.Marshal(creds)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "service-account.json")
	require.NoError(t, os.WriteFile(path, raw, 0600))
	return path
}

// ---- New ---------------------------------------------------------------------

func TestNew_WithCredentialsFile(t *testing.T) {
	cfg := &config.SheetsConfig{
		CredentialsFile: writeServiceAccountKey(t),
		FetchTimeout:    3 * time.Second,
	}

	client, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, client.fetchTimeout)
}

func TestNew_DefaultFetchTimeout(t *testing.T) {
	cfg := &config.SheetsConfig{
		CredentialsFile: writeServiceAccountKey(t),
	}

	client, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, defaultFetchTimeout, client.fetchTimeout)
}

func TestNew_MissingCredentialsFile(t *testing.T) {
	cfg := &config.SheetsConfig{
		CredentialsFile: filepath.Join(t.TempDir(), "does-not-exist.json"),
	}

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create sheets client")
}

// ---- ReadRange ---------------------------------------------------------------

func TestReadRange_Success(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "sheet-centro")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"range": "Extrato!A:F",
			"values": [][]interface{}{
				{"Data de Pagamento", "Nome do Aluno", "Forma de Pagamento", "Valor"},
				{"10/01/2025", "Ana Lima", "PIX", "R$ 350,00"},
			},
		})
	})
	client := newTestClient(t, handler, 5*time.Second)

	rows, err := client.ReadRange(context.Background(), "sheet-centro", "Extrato!A:F")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ana Lima", rows[1][1])
}

func TestReadRange_APIError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":500}}`, http.StatusInternalServerError)
	})
	client := newTestClient(t, handler, 5*time.Second)

	_, err := client.ReadRange(context.Background(), "sheet-centro", "Extrato!A:F")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read range")
}

func TestReadRange_Timeout(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"values":[]}`))
	})
	client := newTestClient(t, handler, 20*time.Millisecond)

	_, err := client.ReadRange(context.Background(), "sheet-centro", "Extrato!A:F")
	require.Error(t, err)
}
