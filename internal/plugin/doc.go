// Package plugin holds the provider-independent plugins that open and close every
// operation's chain.
//
// A typical chain is:
//
//	Start -> <operation plugin> -> AddPayloadBody -> <provider signer> -> AddRadar -> HTTP -> Verify
//
// Start seeds the payload, the operation plugin shapes the outbound call, AddRadar
// announces the assembled request, HTTP performs it and Verify checks the answer.
// Plugins hold only construction-time dependencies and are safe to share between runs.
package plugin
