package models

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// IngestResponse echoes the computed estimate alongside the persisted product
// after a custom-design upload.
type IngestResponse struct {
	Message              string   `json:"message"`
	Product              *Product `json:"product"`
	Quantity             int      `json:"quantity"`
	EstimatedWeightGrams float64  `json:"estimated_weight_grams"`
	EstimatedPrice       float64  `json:"estimated_price"`
}

type CartResponse struct {
	Message string   `json:"message,omitempty"`
	Cart    CartView `json:"cart"`
}

type PaymentKeyResponse struct {
	PaymentKey string `json:"payment_key"`
	IframeURL  string `json:"iframe_url"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
