package cycle

import "time"

// cycleTime exists so Run's Payoff stage never calls time.Now() from
// more than one place, matching the "stamp once" discipline
// internal/pipeline.experimentTime follows for externally-observable
// timestamps.
func cycleTime() time.Time { return time.Now() }
