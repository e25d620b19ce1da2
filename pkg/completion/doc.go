// Package completion wraps the text-completion service used to classify
// queries and phrase results.
//
// Invariants:
// - Every call is bounded by the gateway timeout.
// - Failures are GatewayUnavailable or GatewayTimeout; nothing is retried.
// - The gateway keeps no conversation state between calls.
//
// Usage:
//
//	provider, _ := completion.NewProvider(completion.Config{Provider: "ollama"})
//	gw := completion.NewGateway(provider, completion.Config{Timeout: 30 * time.Second})
//	text, err := gw.Complete(ctx, systemPrompt, []completion.Message{completion.UserMessage("17*3+2")})
package completion
