package models

// PredictionResult is one ranked category candidate for a text.
type PredictionResult struct {
	CategoryID    string  `json:"category_id"`
	CategoryName  string  `json:"category_name"`
	CategoryIcon  string  `json:"category_icon"`
	CategoryColor string  `json:"category_color"`
	Confidence    float64 `json:"confidence"`
}

// PredictResponse is the full answer to a predict request.
type PredictResponse struct {
	Primary           *PredictionResult  `json:"primary"`
	Alternatives      []PredictionResult `json:"alternatives"`
	NeedsConfirmation bool               `json:"needs_confirmation"`
	Source            string             `json:"source"`
}

// StatusResponse is returned by status and retrain operations.
type StatusResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	CategoriesCount int    `json:"categories_count"`
	IsTraining      bool   `json:"is_training"`
}

// ModelInfoResponse describes the currently persisted model.
type ModelInfoResponse struct {
	ModelPath       string `json:"model_path"`
	CategoriesCount int    `json:"categories_count"`
	IsTraining      bool   `json:"is_training"`
	Metadata        string `json:"metadata"`
}
