package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordLogonResult("logon_proof", 0)
	m.RecordLogonResult("logon_proof", 0)
	m.RecordLogonResult("logon_challenge", 4)
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.RecordFramingDrop()
	m.RecordAutoBan(true)
	m.RecordAutoBan(false)
	m.RecordPatchBytes(4096)
	m.RecordPatchBytes(100)
	m.RecordHandler("realm_list", 3*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LogonResults.WithLabelValues("logon_proof", "0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LogonResults.WithLabelValues("logon_challenge", "4")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramingDrops))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AutoBans.WithLabelValues("account")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AutoBans.WithLabelValues("ip")))
	assert.Equal(t, 4196.0, testutil.ToFloat64(m.PatchBytes))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordLogonResult("logon_proof", 5)
		m.SessionOpened()
		m.SessionClosed()
		m.RecordFramingDrop()
		m.RecordAutoBan(true)
		m.RecordPatchBytes(1)
		m.RecordHandler("x", time.Second)
	})
}
