package config

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonwraymond/httpresil/secret"
)

// Load parses doc as a [Document] and returns its "Resilience" section. It
// is [LoadWithProviders] with no providers registered: "${VAR}" still
// expands from the process environment, but a "secretref:<provider>:<ref>"
// reference in CircuitBreaker.CircuitName fails loudly instead of passing
// through unresolved.
func Load(doc []byte) (PipelineConfig, error) {
	return LoadWithProviders(doc)
}

// LoadWithProviders parses doc as a [Document] and returns its
// "Resilience" section. Every string-valued field is first run through
// [secret.ExpandEnvStrict] so a document may reference "${VAR}" and have
// it resolved from the process environment; expansion runs on the raw
// JSON text before decoding, which keeps the document itself agnostic of
// where a value ultimately comes from.
//
// CircuitBreaker.CircuitName is then resolved a second time through a
// [secret.Resolver] built over providers, so the same field may instead
// read "secretref:<provider>:<ref>" and have it resolved against one of
// the given [secret.Provider]s — e.g. "secretref:vault:orders-circuit-name"
// — without the document ever carrying the resolved value in plaintext.
//
// encoding/json is the correct and sufficient tool here: this is a pure
// document-to-struct mapping with no schema evolution or streaming
// concerns that would justify a third-party decoder.
func LoadWithProviders(doc []byte, providers ...secret.Provider) (PipelineConfig, error) {
	expanded, err := secret.ExpandEnvStrict(string(doc))
	if err != nil {
		return PipelineConfig{}, fmt.Errorf("config: expanding document: %w", err)
	}

	var parsed Document
	if err := json.Unmarshal([]byte(expanded), &parsed); err != nil {
		return PipelineConfig{}, fmt.Errorf("config: decoding document: %w", err)
	}

	if parsed.Resilience.CircuitBreaker != nil {
		resolver := secret.NewResolver(true, providers...)
		name, err := resolver.ResolveValue(context.Background(), parsed.Resilience.CircuitBreaker.CircuitName)
		if err != nil {
			return PipelineConfig{}, fmt.Errorf("config: resolving CircuitBreaker.CircuitName: %w", err)
		}
		parsed.Resilience.CircuitBreaker.CircuitName = name
	}

	if err := validate(parsed.Resilience); err != nil {
		return PipelineConfig{}, err
	}

	return parsed.Resilience, nil
}

func validate(cfg PipelineConfig) error {
	if cfg.CircuitBreaker != nil && cfg.CircuitBreaker.CircuitName == "" {
		return fmt.Errorf("config: CircuitBreaker.CircuitName is required when CircuitBreaker is present")
	}
	if cfg.Retry != nil {
		switch cfg.Retry.Backoff.Type {
		case "", "constant", "linear", "exponential":
		default:
			return fmt.Errorf("config: Retry.Backoff.Type %q is not one of constant|linear|exponential", cfg.Retry.Backoff.Type)
		}
	}
	return nil
}
