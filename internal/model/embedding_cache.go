package model

// CorpusEmbeddings is the persisted embedding set for one corpus fingerprint.
type CorpusEmbeddings struct {
	ModelName   string          `json:"model_name"`
	Fingerprint string          `json:"fingerprint"`
	Lines       []KnowledgeLine `json:"lines"`
	Ctime       int64           `json:"ctime"`
}
