package chrono

import (
	"log/slog"
	"studiocheck/internal/components/telemetry"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCronRejectsInvalidSpec(t *testing.T) {
	cron := NewStandardCron(&telemetry.RecorderAPI{})
	defer cron.Stop()

	require.Error(t, cron.Cron("every tuesday", func() {}))
}

func TestCronRecoversPanickingJob(t *testing.T) {
	recorder := &telemetry.RecorderAPI{}
	cron := NewStandardCron(recorder)
	defer cron.Stop()

	var runs atomic.Int32
	err := cron.Cron("@every 1s", func() {
		runs.Add(1)
		panic("warmup exploded")
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, 5*time.Second, 50*time.Millisecond)

	broken := recorder.Reports(slog.LevelError)
	require.NotEmpty(t, broken)
	require.Equal(t, "cron", broken[0].ID)
}
