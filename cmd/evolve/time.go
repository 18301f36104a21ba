package main

import "time"

// cliTime exists so one `evolve` invocation calls time.Now() from a
// single place, matching the "stamp once" discipline internal/pipeline
// and internal/cycle follow for externally-observable timestamps.
func cliTime() time.Time { return time.Now() }
