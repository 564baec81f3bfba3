package session

import (
	"github.com/tessro/startify/internal/core"
	"github.com/tessro/startify/internal/health"
	"github.com/tessro/startify/internal/modules"
	"github.com/tessro/startify/internal/playback"
)

// event is anything the owner goroutine applies. Every field is a value or
// an immutable pointer.
type event interface{ isEvent() }

type snapshotEvent struct{ result playback.SnapshotResult }
type devicesEvent struct{ result playback.DevicesResult }
type healthEvent struct{ report health.Report }
type modulesEvent struct{ result modules.StatusResult }
type profileEvent struct{ profile *core.Profile }
type intervalsEvent struct{ intervals Intervals }

type commandEvent struct {
	cmd   playback.Command
	reply chan error
}

type toggleEvent struct {
	module core.Module
	active bool
	reply  chan error
}

type armEvent struct {
	arm   bool
	reply chan error
}

type dismissEvent struct{}

func (snapshotEvent) isEvent()  {}
func (devicesEvent) isEvent()   {}
func (healthEvent) isEvent()    {}
func (modulesEvent) isEvent()   {}
func (profileEvent) isEvent()   {}
func (intervalsEvent) isEvent() {}
func (commandEvent) isEvent()   {}
func (toggleEvent) isEvent()    {}
func (armEvent) isEvent()       {}
func (dismissEvent) isEvent()   {}
