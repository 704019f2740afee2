package dto

import "time"

// PresignRequest asks for a direct-to-bucket upload credential.
type PresignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// PresignResponse carries the time-limited upload credential.
type PresignResponse struct {
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	ObjectKey string    `json:"object_key"`
	PublicURL string    `json:"public_url"`
	ExpiresAt time.Time `json:"expires_at"`
}
