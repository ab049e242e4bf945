package domain

// MaxReasons bounds the reasons kept from a scoring response.
const MaxReasons = 6

// ScoringResult is the validated output of one LLM scoring call.
type ScoringResult struct {
	IsMatch    bool       `json:"is_match"`
	Score      int        `json:"score"`
	Reasons    []string   `json:"reasons"`
	Flags      []string   `json:"flags"`
	Confidence Confidence `json:"confidence"`
}

// Apply copies the result onto job.
func (r *ScoringResult) Apply(job *Job) {
	job.LLMScore = IntPtr(r.Score)
	job.LLMReasons = append(StringArray{}, r.Reasons...)
	job.LLMConfidence = r.Confidence
	job.IsMatch = r.IsMatch
	for _, f := range r.Flags {
		job.AddFlag(f)
	}
}

// MarkScoringFailed records a terminal scoring failure on job.
func MarkScoringFailed(job *Job) {
	job.AddFlag(FlagScoringFailed)
	job.LLMScore = IntPtr(0)
	job.IsMatch = false
	job.LLMConfidence = ConfidenceLow
}
