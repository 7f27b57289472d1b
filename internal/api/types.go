package api

// DecodeRequest is the body of POST /v1/decode. Exactly one of Source and
// Text is set; unset overrides keep the server defaults.
type DecodeRequest struct {
	Source       [][]int32 `json:"source,omitempty"`
	Text         []string  `json:"text,omitempty"`
	BeamSize     int       `json:"beam_size,omitempty"`
	TopBeams     int       `json:"top_beams,omitempty"`
	DecodeAlpha  *float64  `json:"decode_alpha,omitempty"`
	DecodeLength *int      `json:"decode_length,omitempty"`
	Stream       bool      `json:"stream,omitempty"`
	// Store keeps the result for GET /v1/decode/:id. Defaults to true.
	Store *bool `json:"store,omitempty"`
}

type DecodeResponse struct {
	ID        string           `json:"id"`
	Object    string           `json:"object"`
	CreatedAt int64            `json:"created_at"`
	Results   []SentenceResult `json:"results"`
	Steps     int              `json:"steps"`
	EarlyStop bool             `json:"early_stop"`
	Usage     *DecodeUsage     `json:"usage,omitempty"`
}

type SentenceResult struct {
	Hypotheses []HypothesisItem `json:"hypotheses"`
}

type HypothesisItem struct {
	Tokens   []int32 `json:"tokens"`
	Text     string  `json:"text,omitempty"`
	Score    float32 `json:"score"`
	Finished bool    `json:"finished"`
}

type DecodeUsage struct {
	Sentences       int     `json:"sentences"`
	TokensGenerated int     `json:"tokens_generated"`
	DurationMS      float64 `json:"duration_ms"`
	TokensPerSecond float64 `json:"tokens_per_second"`
}

type DeleteResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

type ParamsResponse struct {
	Object       string  `json:"object"`
	BeamSize     int     `json:"beam_size"`
	TopBeams     int     `json:"top_beams"`
	DecodeAlpha  float64 `json:"decode_alpha"`
	DecodeLength int     `json:"decode_length"`
	Pad          string  `json:"pad"`
	BOS          string  `json:"bos"`
	EOS          string  `json:"eos"`
	UNK          string  `json:"unk"`
	PadID        int32   `json:"pad_id"`
	BOSID        int32   `json:"bos_id"`
	EOSID        int32   `json:"eos_id"`
	VocabSize    int     `json:"vocab_size"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type ResponseError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}
