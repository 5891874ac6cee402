// internal/models/save.go
package models

import (
	"encoding/json"
	"time"
)

// SaveResponse - сохранение слота; Data отдаётся клиенту как есть
type SaveResponse struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
