package domain

import "time"

// RunLog is the immutable summary of one pipeline run.
type RunLog struct {
	ID            uint        `gorm:"column:run_id;primaryKey;autoIncrement" json:"run_id"`
	RunUUID       string      `gorm:"type:text;index" json:"run_uuid"`
	RunDate       string      `gorm:"type:text;not null;index" json:"run_date"`
	Mode          RunMode     `gorm:"type:text;not null" json:"mode"`
	TotalFetched  int         `json:"total_fetched"`
	TotalFiltered int         `json:"total_filtered"`
	TotalMatched  int         `json:"total_matched"`
	TotalEmailed  int         `json:"total_emailed"`
	Errors        StringArray `gorm:"type:text" json:"errors"`
	DurationSecs  float64     `json:"duration_secs"`
	CreatedAt     time.Time   `json:"created_at"`
}

// TableName returns the database table name for RunLog.
func (RunLog) TableName() string {
	return "runs"
}
