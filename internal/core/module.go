package core

import "fmt"

// Module names an auxiliary engine module on the backend.
type Module string

const (
	ModuleVoice Module = "voice"
	ModuleHand  Module = "hand"
)

// Modules lists every known module in display order.
var Modules = []Module{ModuleVoice, ModuleHand}

// ParseModule validates a module name.
func ParseModule(s string) (Module, error) {
	switch Module(s) {
	case ModuleVoice, ModuleHand:
		return Module(s), nil
	}
	return "", fmt.Errorf("unknown module %q", s)
}

// ModulePhase is the lifecycle of a single module as seen by the client.
type ModulePhase string

const (
	PhaseNotReady ModulePhase = "not_ready"
	PhaseInactive ModulePhase = "inactive"
	PhaseActive   ModulePhase = "active"
)

// EngineModuleState is the backend's view of its modules. The zero value
// (all false) is used until the engine has answered.
type EngineModuleState struct {
	VoiceActive bool `json:"voice_active"`
	HandActive  bool `json:"hand_active"`
	VoiceReady  bool `json:"voice_ready"`
	HandReady   bool `json:"hand_ready"`
}

// Ready reports whether the module can be toggled.
func (s EngineModuleState) Ready(m Module) bool {
	switch m {
	case ModuleVoice:
		return s.VoiceReady
	case ModuleHand:
		return s.HandReady
	}
	return false
}

// Active reports whether the module is running.
func (s EngineModuleState) Active(m Module) bool {
	switch m {
	case ModuleVoice:
		return s.VoiceActive
	case ModuleHand:
		return s.HandActive
	}
	return false
}

// Phase returns the module's current phase.
func (s EngineModuleState) Phase(m Module) ModulePhase {
	switch {
	case !s.Ready(m):
		return PhaseNotReady
	case s.Active(m):
		return PhaseActive
	}
	return PhaseInactive
}

// WithActive returns a copy with the module's active flag set.
func (s EngineModuleState) WithActive(m Module, active bool) EngineModuleState {
	switch m {
	case ModuleVoice:
		s.VoiceActive = active
	case ModuleHand:
		s.HandActive = active
	}
	return s
}
