package constants

// Verse - One Aathichoodi row. Immutable once loaded.
type Verse struct {
	VerseNo       int    `json:"VerseNo"`
	Text          string `json:"Verse"`       // Tamil script
	Gloss         string `json:"Gloss"`       // Original_English
	Explanation   string `json:"Explanation"` // Rich_English_Explanation
	EmbeddingText string `json:"EmbeddingText"`
	Ordinal       int    `json:"Ordinal"` // row position, used to break ties
}

// VerseEmbedding - A verse paired with the vector computed from its EmbeddingText
type VerseEmbedding struct {
	Verse
	Embedding []float32 `json:"Embedding"`
}

// VerseEmbeddingResponse - What a vector search hands back
type VerseEmbeddingResponse struct {
	Verse
	Score float32 `json:"Score"`
}
