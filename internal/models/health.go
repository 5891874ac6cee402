// internal/models/health.go
package models

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
