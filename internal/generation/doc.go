// Package generation defines the Generator capability shared by every text
// generation backend, together with the pieces the backends have in common:
// the error taxonomy, the diagnostic text convention used to report failures
// without returning an error, placeholder expansion for configuration values,
// and the retry policy used by the network adapters.
//
// Concrete backends live under internal/platform and are selected by name
// through internal/adapter.
package generation
