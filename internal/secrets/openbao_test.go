package secrets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBootstrapExportsSecrets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/secret/data/reconciler/prod", r.URL.Path)
		assert.Equal(t, "root", r.Header.Get("X-Vault-Token"))
		_, _ = w.Write([]byte(`{"data":{"data":{"PAYPAL_CLIENT_SECRET":"s3cret","SHOPIFY_PAGE_SIZE":25,"KAFKA_ENABLED":false,"nested":{"a":1}}}}`))
	}))
	t.Cleanup(srv.Close)

	t.Setenv("OPENBAO_ADDR", srv.URL+"/")
	t.Setenv("OPENBAO_TOKEN", "root")
	t.Setenv("OPENBAO_SECRET_PATH", "/reconciler/prod/")
	t.Setenv("PAYPAL_CLIENT_SECRET", "")
	t.Setenv("SHOPIFY_PAGE_SIZE", "")
	t.Setenv("KAFKA_ENABLED", "")

	require.NoError(t, BootstrapFromOpenBao(context.Background(), srv.Client(), zap.NewNop()))
	assert.Equal(t, "s3cret", os.Getenv("PAYPAL_CLIENT_SECRET"))
	assert.Equal(t, "25", os.Getenv("SHOPIFY_PAGE_SIZE"))
	assert.Equal(t, "false", os.Getenv("KAFKA_ENABLED"))
	_, set := os.LookupEnv("nested")
	assert.False(t, set)
}

func TestBootstrapNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	t.Setenv("OPENBAO_ADDR", srv.URL)
	t.Setenv("OPENBAO_TOKEN", "root")
	t.Setenv("OPENBAO_SECRET_PATH", "missing")

	err := BootstrapFromOpenBao(context.Background(), srv.Client(), zap.NewNop())
	assert.ErrorIs(t, err, ErrOpenBaoSecretNotFound)
}

func TestBootstrapDisabledWithoutEnv(t *testing.T) {
	t.Setenv("OPENBAO_ADDR", "")
	assert.NoError(t, BootstrapFromOpenBao(context.Background(), nil, zap.NewNop()))
}
