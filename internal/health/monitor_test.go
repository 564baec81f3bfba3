package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessro/startify/internal/core"
)

type stubChecker struct {
	health *core.SystemHealth
	err    error
}

func (s stubChecker) Health(context.Context) (*core.SystemHealth, error) {
	return s.health, s.err
}

func TestProbe(t *testing.T) {
	reported := &core.SystemHealth{Code: 502, Message: "Spotify API failed"}

	assert.Nil(t, Probe(context.Background(), stubChecker{}))
	assert.Equal(t, reported, Probe(context.Background(), stubChecker{health: reported}))

	got := Probe(context.Background(), stubChecker{err: errors.New("dial tcp: connection refused")})
	require.NotNil(t, got)
	assert.Equal(t, core.SystemHealth{
		Code:    500,
		Message: "service unreachable",
		DevInfo: "dial tcp: connection refused",
	}, *got)
}

func TestMonitorReplacesAndClears(t *testing.T) {
	m := NewMonitor(nil)
	gen, ok := m.Arm()
	require.True(t, ok)

	assert.True(t, m.Apply(Report{Health: &core.SystemHealth{Code: 503, Message: "down"}, Generation: gen}))
	assert.Equal(t, 503, m.Current().Code)

	assert.True(t, m.Apply(Report{Health: &core.SystemHealth{Code: 502, Message: "other"}, Generation: gen}))
	assert.Equal(t, 502, m.Current().Code)

	assert.True(t, m.Apply(Report{Generation: gen}))
	assert.Nil(t, m.Current())
}

func TestMonitorDismissKeepsArmed(t *testing.T) {
	m := NewMonitor(nil)
	gen, _ := m.Arm()
	m.Apply(Report{Health: &core.SystemHealth{Code: 503}, Generation: gen})

	m.Dismiss()
	assert.Nil(t, m.Current())
	assert.True(t, m.Armed())

	// The next poll may raise it again.
	assert.True(t, m.Apply(Report{Health: &core.SystemHealth{Code: 503}, Generation: gen}))
	assert.NotNil(t, m.Current())
}

func TestMonitorFrozenAfterDisarm(t *testing.T) {
	m := NewMonitor(nil)
	gen, _ := m.Arm()
	m.Apply(Report{Health: &core.SystemHealth{Code: 503}, Generation: gen})

	require.True(t, m.Disarm())
	assert.False(t, m.Apply(Report{Generation: gen}), "late report from the old generation")
	assert.False(t, m.Apply(Report{Generation: m.Generation()}), "reports while disarmed")
	assert.Equal(t, 503, m.Current().Code)

	newGen, ok := m.Arm()
	require.True(t, ok)
	assert.NotEqual(t, gen, newGen)
	assert.False(t, m.Apply(Report{Generation: gen}), "report from before re-arm")
	assert.True(t, m.Apply(Report{Generation: newGen}))
	assert.Nil(t, m.Current())
}

func TestArmTwice(t *testing.T) {
	m := NewMonitor(nil)
	g1, ok := m.Arm()
	require.True(t, ok)
	g2, ok := m.Arm()
	assert.False(t, ok)
	assert.Equal(t, g1, g2)
	assert.False(t, NewMonitor(nil).Disarm())
}

func TestProbeTickTagsGeneration(t *testing.T) {
	var got []Report
	tick := NewProbeTick(stubChecker{err: errors.New("refused")}, 7, func(r Report) { got = append(got, r) }, nil, nil)
	tick(context.Background())

	require.Len(t, got, 1)
	assert.Equal(t, uint64(7), got[0].Generation)
	assert.Equal(t, core.UnreachableCode, got[0].Health.Code)
}
