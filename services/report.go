package services

// BatchReport summarizes one batch-job run. Jobs always finish the batch and
// report counts; per-item failures never abort the run.
type BatchReport struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}
