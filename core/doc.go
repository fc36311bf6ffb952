// Package core contains the brokerage session: credentials, persisted token
// state, the authorization-code flow and the authenticated request dispatcher.
// Storage and HTTP adapters depend on this package; core must not depend on
// store-specific or transport-specific adapters.
package core
