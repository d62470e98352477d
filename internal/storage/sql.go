package storage

import (
	_ "embed"
)

const (
	insertRunSQL = `
INSERT INTO runs (
                  log_path,
                  log_size,
                  log_hash,
                  firmware,
                  sample_rate,
                  samples,
                  duration)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	selectRunSQL = `
SELECT
    id,
    created_at,
    log_path,
    log_size,
    log_hash,
    firmware,
    sample_rate,
    samples,
    duration
FROM runs
WHERE
    id = ?`

	selectRunByLogSQL = `
SELECT
    id,
    created_at,
    log_path,
    log_size,
    log_hash,
    firmware,
    sample_rate,
    samples,
    duration
FROM runs
WHERE
    log_hash = ? AND log_size = ?
ORDER BY created_at DESC
LIMIT 1`

	selectRunsSQL = `
SELECT
    id,
    created_at,
    log_path,
    log_size,
    log_hash,
    firmware,
    sample_rate,
    samples,
    duration
FROM runs
ORDER BY created_at`

	insertResultSQL = `
INSERT OR REPLACE INTO results (run_id,
                                kind,
                                axis,
                                channel,
                                params,
                                payload)
VALUES `

	selectResultSQL = `
SELECT
    id,
    run_id,
    kind,
    axis,
    channel,
    params,
    payload,
    created_at
FROM results
WHERE
    run_id = ? AND kind = ? AND axis = ? AND channel = ? AND params = ?`

	selectResultsSQL = `
SELECT
    id,
    run_id,
    kind,
    axis,
    channel,
    params,
    payload,
    created_at
FROM results
WHERE
    run_id = ?
ORDER BY kind, axis, channel`
)

//go:embed schema.sql
var schemaSQL string
