package config

import "fmt"

const (
	tenantIDVar              = "ENTRA_ID_TENANT_ID"
	clientIDVar              = "ENTRA_ID_CLIENT_ID"
	apiAccessScopeVar        = "API_ACCESS_SCOPE"
	redirectURLVar           = "OIDC_REDIRECT_URL"
	issuerVar                = "OIDC_ISSUER"
	authorizationEndpointVar = "OIDC_AUTHORIZATION_ENDPOINT"
	tokenEndpointVar         = "OIDC_TOKEN_ENDPOINT"

	entraIDAuthority = "https://login.microsoftonline.com"
)

type IdentityConfig interface {
	GetTenantID() string
	GetClientID() string
	GetAPIAccessScope() string
	GetRedirectURL() string
	GetIssuer() string
	GetAuthorizationEndpoint() string
	GetTokenEndpoint() string
}

type Identity struct{}

var _ IdentityConfig = Identity{}

func (Identity) GetTenantID() string {
	return GetEnv(tenantIDVar, "")
}

func (Identity) GetClientID() string {
	return GetEnv(clientIDVar, "")
}

func (Identity) GetAPIAccessScope() string {
	return GetEnv(apiAccessScopeVar, "")
}

// GetRedirectURL must match the redirect registered with the identity provider.
// The trailing slash is part of the registration.
func (Identity) GetRedirectURL() string {
	return GetEnv(redirectURLVar, "http://127.0.0.1:8400/auth/")
}

// GetIssuer enables OIDC discovery when set; the discovered endpoints win over the static ones.
func (Identity) GetIssuer() string {
	return GetEnv(issuerVar, "")
}

func (i Identity) GetAuthorizationEndpoint() string {
	return GetEnv(authorizationEndpointVar, fmt.Sprintf("%s/%s/oauth2/v2.0/authorize", entraIDAuthority, i.GetTenantID()))
}

func (i Identity) GetTokenEndpoint() string {
	return GetEnv(tokenEndpointVar, fmt.Sprintf("%s/%s/oauth2/v2.0/token", entraIDAuthority, i.GetTenantID()))
}
