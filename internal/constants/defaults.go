package constants

const (
	MaxResultsLimit  = 5 // verses handed to Paatti per question
	Temperature      = float32(0.5)
	ChatModel        = "gemini-2.0-flash"
	CollectionName   = "aathichoodi"
	ModelRepoID      = "GSR-608001/aathichoodi_pro_model"
	ModelCacheDir    = "./cached_model_fixed"
	ModelWeightsFile = "model.safetensors"
	ModelConfigFile  = "config.json"
	ModelType        = "xlm-roberta"
	CorpusFile       = "aathichoodi_english_rich.csv"
	LoadingMessage   = "Brain loading..."
	ApologyPrefix    = "👵 Paatti needs a moment to rest."
	EmptyQueryReply  = "👵 Kanna, tell Paatti what is on your mind and she will find a verse for you."
	LongQueryReply   = "👵 Kanna, that is a lot to carry at once. Tell Paatti in fewer words (at most %d characters)."
)
