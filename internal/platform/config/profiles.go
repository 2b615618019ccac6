package config

import (
	"runtime"
	"time"
)

// Network profiles.
const (
	ProfileDefault = "default"
	ProfileStress  = "stress"
	ProfileLow     = "low"
)

// Tuning holds channel buffers and limits for one load profile.
type Tuning struct {
	BroadcastBuffer      int
	ClientSendBuffer     int
	MaxMessagesPerSecond float64
	MessageBurst         int
	MaxClients           int
	EventPollInterval    time.Duration
}

// DefaultTuning returns sensible defaults for production.
func DefaultTuning() Tuning {
	return Tuning{
		BroadcastBuffer:      256, // Handle bursts of ping snapshots
		ClientSendBuffer:     64,  // Per websocket
		MaxMessagesPerSecond: 20,  // Per client
		MessageBurst:         40,
		MaxClients:           runtime.NumCPU() * 25,
		EventPollInterval:    250 * time.Millisecond,
	}
}

// StressTuning returns aggressive settings for load testing.
func StressTuning() Tuning {
	return Tuning{
		BroadcastBuffer:      1024,
		ClientSendBuffer:     256,
		MaxMessagesPerSecond: 500,
		MessageBurst:         1000,
		MaxClients:           runtime.NumCPU() * 100,
		EventPollInterval:    100 * time.Millisecond,
	}
}

// LowResourceTuning returns minimal settings for development.
func LowResourceTuning() Tuning {
	return Tuning{
		BroadcastBuffer:      16,
		ClientSendBuffer:     8,
		MaxMessagesPerSecond: 5,
		MessageBurst:         10,
		MaxClients:           10,
		EventPollInterval:    time.Second,
	}
}

// ProfileFor maps a profile name to its tuning. Unknown names get the
// default tuning.
func ProfileFor(name string) Tuning {
	switch name {
	case ProfileStress:
		return StressTuning()
	case ProfileLow:
		return LowResourceTuning()
	default:
		return DefaultTuning()
	}
}

// ApplyProfile fills the zero fields of n from t. Explicit values win.
func ApplyProfile(n *NetworkConfig, t Tuning) {
	if n.BroadcastBuffer == 0 {
		n.BroadcastBuffer = t.BroadcastBuffer
	}
	if n.ClientSendBuffer == 0 {
		n.ClientSendBuffer = t.ClientSendBuffer
	}
	if n.MaxMessagesPerSecond == 0 {
		n.MaxMessagesPerSecond = t.MaxMessagesPerSecond
	}
	if n.MessageBurst == 0 {
		n.MessageBurst = t.MessageBurst
	}
	if n.MaxClients == 0 {
		n.MaxClients = t.MaxClients
	}
	if n.EventPollInterval == 0 {
		n.EventPollInterval = t.EventPollInterval
	}
}
