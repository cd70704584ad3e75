package copy

import "time"

// sleepForTimestamps is the process-wide utility invoked after any WC
// mutation so that a subsequent stat-based staleness check can observe a
// ticked filesystem clock (spec.md §9, "Global sleep_for_timestamps").
// It is a package variable so tests can replace it with a no-op.
var sleepForTimestamps = func() {
	time.Sleep(1 * time.Millisecond)
}

// SetTimestampSleepDuration overrides how long sleepForTimestamps pauses.
// Callers (the CLI, reading internal/config) use this to apply a
// configured duration instead of the 1ms default.
func SetTimestampSleepDuration(d time.Duration) {
	sleepForTimestamps = func() { time.Sleep(d) }
}
