package model

type KnowledgeLine struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}
