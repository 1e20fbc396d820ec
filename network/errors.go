package network

import "errors"

var (
	// ErrConnectionFailed indicates the client could not reach the endpoint.
	ErrConnectionFailed = errors.New("network: connection failed")

	// ErrAuthFailed indicates the endpoint rejected the credentials.
	ErrAuthFailed = errors.New("network: authentication failed")

	// ErrUtxoNotFound indicates the requested output does not exist or is spent.
	ErrUtxoNotFound = errors.New("network: utxo not found")

	// ErrSubmitRejected indicates the node or emulator rejected a transaction.
	ErrSubmitRejected = errors.New("network: transaction rejected")

	// ErrInvalidResponse indicates a malformed or unexpected response.
	ErrInvalidResponse = errors.New("network: invalid response")

	// ErrNotConfigured indicates no endpoint could be resolved for a network.
	ErrNotConfigured = errors.New("network: endpoint not configured")

	// ErrDiscoveryFailed indicates SRV discovery found no usable record.
	ErrDiscoveryFailed = errors.New("network: endpoint discovery failed")

	// ErrDNSSECFailed indicates the resolver did not authenticate the answer.
	ErrDNSSECFailed = errors.New("network: DNSSEC validation failed")
)
