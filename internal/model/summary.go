package model

type Summary struct {
	Seq        int64  `json:"seq" db:"seq"`
	Text       string `json:"text" db:"text"`
	CoversUpTo int64  `json:"covers_up_to" db:"covers_up_to"`
	UserTurns  int64  `json:"user_turns" db:"user_turns"`
	Ctime      int64  `json:"ctime" db:"ctime"`
}
