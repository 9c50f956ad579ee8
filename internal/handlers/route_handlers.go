package handlers

// ChatRequest - body of POST /chat
type ChatRequest struct {
	Query string `json:"query"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

// ErrorResponse - for 4xx/5xx. Mirrors the {"detail": ...} shape clients already parse.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

type HealthResponse struct {
	Status string `json:"status"` // ready | loading
	Verses int    `json:"verses"`
}
