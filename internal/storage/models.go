package storage

import "time"

// Run is one analysis pass over one decoded flight log. The (log_hash,
// log_size) pair identifies the log contents independently of where the file
// lives on disk.
type Run struct {
	ID        int64
	CreatedAt time.Time

	LogPath    string
	LogSize    int64
	LogHash    string
	Firmware   string
	SampleRate float64
	Samples    int64
	Duration   float64
}

// Result is one stored estimator output. Kind names the estimator ("step",
// "psd", "noise", "spectrogram"), Axis and Channel identify the input column,
// Params is the canonical JSON of the estimator config and Payload the JSON of
// its result. Together with the run they form the cache key: re-analyzing the
// same log with the same parameters is a lookup, not a recompute.
type Result struct {
	ID        int64
	RunID     int64
	Kind      string
	Axis      string
	Channel   string
	Params    string
	Payload   string
	CreatedAt time.Time
}
