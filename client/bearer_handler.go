package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/httpresil/httpmsg"
	"github.com/jonwraymond/httpresil/pipeline"
	"github.com/jonwraymond/httpresil/secret"
)

// BearerHandlerConfig configures BearerHandler.
type BearerHandlerConfig struct {
	// SigningKey signs every minted token with jwt.SigningMethodHS256.
	SigningKey []byte

	// Issuer and Audience populate the iss/aud claims.
	Issuer   string
	Audience string

	// TTL is how long a minted token is considered fresh; BearerHandler
	// mints a new one once the cached token is within RefreshSkew of
	// expiring.
	TTL         time.Duration
	RefreshSkew time.Duration
}

// BearerHandler is a custom DelegatingHandler (AddHandler-compatible) that
// mints a short-lived JWT and attaches it to the outgoing request as
// "Authorization: Bearer <token>" — the outbound counterpart to an
// inbound JWT validator: minting a token rather than checking one.
type BearerHandler struct {
	pipeline.DelegatingHandler
	config BearerHandlerConfig

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewBearerHandler builds a BearerHandler, applying reasonable defaults
// for zero-valued fields.
func NewBearerHandler(config BearerHandlerConfig) *BearerHandler {
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	if config.RefreshSkew <= 0 {
		config.RefreshSkew = 30 * time.Second
	}
	return &BearerHandler{config: config}
}

// Handle attaches a bearer token to the request, minting a new one only
// once the cached token is near expiry, then calls through.
func (h *BearerHandler) Handle(ctx *httpmsg.Context) (httpmsg.Response, error) {
	token, err := h.currentToken()
	if err != nil {
		return httpmsg.Response{}, err
	}
	ctx.UpdateRequest(ctx.Request().WithHeader("Authorization", "Bearer "+token))
	return h.Next().Handle(ctx)
}

// NewBearerHandlerFromSecret builds a BearerHandler whose SigningKey is
// never passed in plaintext: it is resolved at construction time from a
// [secret.Provider] instantiated by name out of registry (or
// [secret.DefaultRegistry] if registry is nil), the same
// name→factory→instance chain [secret.Registry] exists for. This is the
// production shape of a signing key — fetched from Vault/KMS/whatever
// providerName was registered for, never checked into a config document.
func NewBearerHandlerFromSecret(registry *secret.Registry, providerName string, providerCfg map[string]any, signingKeyRef string, config BearerHandlerConfig) (*BearerHandler, error) {
	if registry == nil {
		registry = secret.DefaultRegistry
	}

	provider, err := registry.Create(providerName, providerCfg)
	if err != nil {
		return nil, fmt.Errorf("client: creating secret provider %q: %w", providerName, err)
	}
	defer provider.Close()

	key, err := provider.Resolve(context.Background(), signingKeyRef)
	if err != nil {
		return nil, fmt.Errorf("client: resolving signing key %q from provider %q: %w", signingKeyRef, providerName, err)
	}

	config.SigningKey = []byte(key)
	return NewBearerHandler(config), nil
}

func (h *BearerHandler) currentToken() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.token != "" && time.Now().Add(h.config.RefreshSkew).Before(h.expiresAt) {
		return h.token, nil
	}

	now := time.Now()
	expiresAt := now.Add(h.config.TTL)
	claims := jwt.RegisteredClaims{
		Issuer:    h.config.Issuer,
		Audience:  jwt.ClaimStrings{h.config.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(h.config.SigningKey)
	if err != nil {
		return "", err
	}

	h.token = signed
	h.expiresAt = expiresAt
	return signed, nil
}
