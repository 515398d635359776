package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// ConfigEndpoint is the endpoint to get the public dApp configuration
	ConfigEndpoint = "/config"
	// SessionEndpoint is the endpoint to get, connect (POST) and disconnect
	// (DELETE) the wallet session
	SessionEndpoint = "/session"
	// SessionQREndpoint returns a PNG QR code of the connected address
	SessionQREndpoint = "/session/qr"
	// StateEndpoint is the endpoint to get the current snapshot
	StateEndpoint = "/state"
	// RefreshEndpoint re-reads balance and interest from the contract
	RefreshEndpoint = "/state/refresh"
	// ActionURLParam is the name of the action in the URL
	ActionURLParam = "action"
	// InputEndpoint sets the amount field of an action
	InputEndpoint = "/inputs/{" + ActionURLParam + "}"
	// ActionEndpoint starts the lifecycle of an action
	ActionEndpoint = "/actions/{" + ActionURLParam + "}"
	// StatusEndpoint returns the current status message
	StatusEndpoint = "/status"
	// EventsEndpoint is the websocket stream of snapshots
	EventsEndpoint = "/events"
	// MetricsEndpoint exposes the prometheus metrics
	MetricsEndpoint = "/metrics"
)
