package models

import "time"

// StatusAlive is the status reported by a healthy agent.
const StatusAlive = "alive"

// Heartbeat represents the structure for a participant liveness event. Uptime
// and memory use let the receiving side judge whether a silent participant's
// last position sample is still trustworthy.
type Heartbeat struct {
	ParticipantID     string    `json:"participant_id"`
	Timestamp         time.Time `json:"timestamp"`
	Status            string    `json:"status"`
	UptimeSeconds     uint64    `json:"uptime_seconds"`
	MemoryUsedPercent float64   `json:"memory_used_percent"`
}
