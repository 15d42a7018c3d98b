package response

// APIError is the uniform error envelope. Data carries failure-specific
// detail, such as the outstanding machines of a rejected stop.
type APIError struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
