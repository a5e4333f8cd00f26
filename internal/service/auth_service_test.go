package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notaflow/internal/config"
	"notaflow/internal/domain"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret-at-least-32-chars-long!!",
		AccessTokenExpiry: time.Hour,
		Issuer:            "notaflow-test",
	}
}

func setupAuth(t *testing.T) (AuthService, TenantService, *CreatedTenant) {
	t.Helper()
	repo := newFakeTenantRepo()
	tenants := NewTenantService(repo)
	created, err := tenants.Create(context.Background(), CreateTenantInput{Name: "Acme", Slug: "acme"})
	require.NoError(t, err)
	return NewAuthService(repo, testJWTConfig()), tenants, created
}

func TestIssueTokenAndValidate(t *testing.T) {
	auth, _, created := setupAuth(t)

	token, err := auth.IssueToken(context.Background(), TokenInput{
		TenantSlug: "acme",
		APIKey:     created.APIKey,
	})
	require.NoError(t, err)
	require.NotEmpty(t, token.AccessToken)
	assert.True(t, token.ExpiresAt.After(time.Now()))

	claims, err := auth.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, created.Tenant.ID, claims.TenantID)
	assert.Equal(t, "acme", claims.TenantSlug)
}

func TestIssueTokenWrongKey(t *testing.T) {
	auth, _, _ := setupAuth(t)

	_, err := auth.IssueToken(context.Background(), TokenInput{
		TenantSlug: "acme",
		APIKey:     "nfk_" + strings.Repeat("0", 64),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestIssueTokenUnknownTenant(t *testing.T) {
	auth, _, created := setupAuth(t)

	_, err := auth.IssueToken(context.Background(), TokenInput{
		TenantSlug: "nobody",
		APIKey:     created.APIKey,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestIssueTokenInactiveTenant(t *testing.T) {
	auth, tenants, created := setupAuth(t)

	inactive := false
	_, err := tenants.Update(context.Background(), created.Tenant.ID, UpdateTenantInput{IsActive: &inactive})
	require.NoError(t, err)

	_, err = auth.IssueToken(context.Background(), TokenInput{
		TenantSlug: "acme",
		APIKey:     created.APIKey,
	})
	assert.ErrorIs(t, err, domain.ErrTenantInactive)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	auth, _, _ := setupAuth(t)

	_, err := auth.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	repo := newFakeTenantRepo()
	tenants := NewTenantService(repo)
	created, err := tenants.Create(context.Background(), CreateTenantInput{Name: "Acme", Slug: "acme"})
	require.NoError(t, err)

	issuer := NewAuthService(repo, testJWTConfig())
	token, err := issuer.IssueToken(context.Background(), TokenInput{TenantSlug: "acme", APIKey: created.APIKey})
	require.NoError(t, err)

	other := testJWTConfig()
	other.Secret = "another-secret-entirely-32-chars!!!!"
	verifier := NewAuthService(repo, other)

	_, err = verifier.ValidateToken(token.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestTenantCreateIssuesKeyOnce(t *testing.T) {
	repo := newFakeTenantRepo()
	tenants := NewTenantService(repo)

	created, err := tenants.Create(context.Background(), CreateTenantInput{Name: "Acme", Slug: "acme"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(created.APIKey, "nfk_"))
	assert.NotContains(t, created.Tenant.APIKeyHash, created.APIKey)

	// The key is never derivable from what is stored.
	stored, err := repo.GetBySlug(context.Background(), "acme")
	require.NoError(t, err)
	assert.NotEqual(t, created.APIKey, stored.APIKeyHash)

	_, err = tenants.Create(context.Background(), CreateTenantInput{Name: "Other", Slug: "acme"})
	assert.ErrorIs(t, err, domain.ErrDuplicateTenantSlug)
}
