package model

type SessionStatus string

const (
	SessionStatusDisconnected SessionStatus = "disconnected"
	SessionStatusPairing      SessionStatus = "pairing"
	SessionStatusConnected    SessionStatus = "connected"
)
