package model

import "time"

// JobEvent is one entry in a job's append-only activity trail.
// Events are published to a Redis stream on every status change and
// flushed to Postgres in batches by the events worker.
type JobEvent struct {
	ID          int64     `json:"id"`
	JobID       string    `json:"job_id"`
	OwnerID     string    `json:"owner_id"`
	Status      JobStatus `json:"status"`
	ResultCount int       `json:"result_count"`
	Detail      string    `json:"detail,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// DailyJobStats is one day of aggregated job activity for an owner.
type DailyJobStats struct {
	Date      time.Time `json:"date"`
	Accepted  int64     `json:"accepted"`
	Completed int64     `json:"completed"`
	Failed    int64     `json:"failed"`
	Results   int64     `json:"results"`
}

// JobStatsResponse is the API shape of the job analytics endpoint.
type JobStatsResponse struct {
	GeneratedAt time.Time `json:"generated_at"`
	Period      struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"period"`
	Summary struct {
		Accepted  int64 `json:"accepted"`
		Completed int64 `json:"completed"`
		Failed    int64 `json:"failed"`
		Results   int64 `json:"results"`
	} `json:"summary"`
	Daily []DailyJobStats `json:"daily"`
}
