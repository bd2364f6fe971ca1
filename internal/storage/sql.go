package storage

import (
	_ "embed"
)

var (
	//go:embed schema.sql
	initSchemaSQL string

	//go:embed indexes.sql
	initIndexesSQL string
)

const (
	insertSessionSQL = `
INSERT INTO sessions (
                      start_time,
                      source,
                      devices,
                      config)
VALUES (CURRENT_TIMESTAMP, ?, ?, ?)`

	selectSessionSQL = `
SELECT 
    id, 
    start_time, 
    source, 
    devices, 
    config 
FROM sessions 
WHERE 
    id = ?`

	selectSessionsSQL = `
SELECT 
    id, 
    start_time, 
    source, 
    devices, 
    config 
FROM sessions
ORDER BY start_time, id`

	insertSampleSQL = `
INSERT INTO samples (
                     session_id,
                     seq,
                     device_id,
                     battery,
                     counter,
                     q1,
                     q2,
                     q3,
                     q4,
                     tstamp,
                     tod_ms)
VALUES `

	selectMaxSeqSQL = `
SELECT 
    COALESCE(MAX(seq), 0)
FROM samples
WHERE 
    session_id = ?`

	selectSamplesSQL = `
SELECT 
    device_id,
    battery,
    counter,
    q1,
    q2,
    q3,
    q4,
    tstamp
FROM samples
WHERE 
    session_id = ?
    AND device_id BETWEEN 1 AND ?`

	insertStatisticsSQL = `
INSERT INTO loss_statistics (
                             session_id,
                             created_at,
                             policy,
                             total_rows,
                             full_rows,
                             empty_rows,
                             fill_count,
                             time_window_ms,
                             histogram,
                             devices)
VALUES (?, CURRENT_TIMESTAMP, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectStatisticsSQL = `
SELECT 
    id,
    created_at,
    policy,
    total_rows,
    full_rows,
    empty_rows,
    fill_count,
    time_window_ms,
    histogram,
    devices
FROM loss_statistics
WHERE 
    session_id = ?
ORDER BY id`
)
