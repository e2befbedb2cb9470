package model

type Turn struct {
	Seq           int64  `json:"seq" db:"seq"`
	UserText      string `json:"user_text" db:"user_text"`
	AssistantText string `json:"assistant_text" db:"assistant_text"`
	HasUserText   bool   `json:"has_user_text" db:"has_user_text"`
	Ctime         int64  `json:"ctime" db:"ctime"`
}

// IsSeed reports whether the turn was produced without a user message,
// e.g. the greeting written on the first run.
func (t Turn) IsSeed() bool {
	return !t.HasUserText
}
