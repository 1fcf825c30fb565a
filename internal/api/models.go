package api

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// OptimizeRequest is the body of POST /optimize.
type OptimizeRequest struct {
	PowerQueryCode string `json:"powerQueryCode"`
}

// EnvCheckResponse reports whether credentials are configured.
type EnvCheckResponse struct {
	HasAPIKey  bool   `json:"hasApiKey"`
	KeyPreview string `json:"keyPreview"`
	Model      string `json:"model"`
	Storage    string `json:"storage"`
}

// DetectSourceResponse is the body returned by POST /api/detect-source.
type DetectSourceResponse struct {
	Source string `json:"source"`
}

// RecordSessionRequest is the body of POST /api/usage/sessions. When Source is empty
// it is detected from PowerQueryCode.
type RecordSessionRequest struct {
	StepsReduced   int      `json:"stepsReduced"`
	Patterns       []string `json:"patterns"`
	Source         string   `json:"source"`
	PowerQueryCode string   `json:"powerQueryCode,omitempty"`
}

// ExportCodeRequest is the body of POST /api/export/code.
type ExportCodeRequest struct {
	OptimizedCode string `json:"optimizedCode"`
}
