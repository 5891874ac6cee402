// internal/models/monster.go
package models

import (
	"encoding/json"
	"time"
)

// MonsterPayload - поля тела запроса, которые раскладываются по колонкам.
// Тело целиком сохраняется в колонку data.
type MonsterPayload struct {
	ID           json.RawMessage `json:"id"`
	Name         string          `json:"name"`
	Element      string          `json:"element"`
	Description  string          `json:"description"`
	ImageURL     string          `json:"imageUrl"`
	ModelURL     string          `json:"modelUrl"`
	VisualPrompt string          `json:"visualPrompt"`
}

type Monster struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Element      string          `json:"element"`
	Description  *string         `json:"description"`
	ImageURL     *string         `json:"imageUrl"`
	ModelURL     *string         `json:"modelUrl"`
	VisualPrompt *string         `json:"visualPrompt"`
	Data         json.RawMessage `json:"data"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type MonstersResponse struct {
	Success  bool      `json:"success"`
	Monsters []Monster `json:"monsters"`
}

type MonsterSavedResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MonsterID int64  `json:"monsterId"`
}
