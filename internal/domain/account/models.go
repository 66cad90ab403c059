package account

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type RecordItem struct {
	Item           string  `json:"item"`
	Type           string  `json:"type"`
	Confidence     float64 `json:"confidence"`
	Recyclable     bool    `json:"recyclable"`
	DisposalMethod string  `json:"disposal_method,omitempty"`
	Description    string  `json:"description,omitempty"`
}

type Record struct {
	ID                uuid.UUID    `json:"id"`
	UserID            uuid.UUID    `json:"user_id"`
	Items             []RecordItem `json:"items"`
	ImageFile         string       `json:"image_file"`
	DetectedImageFile string       `json:"detected_image_file,omitempty"`
	IsSaved           bool         `json:"is_saved"`
	CreatedAt         time.Time    `json:"created_at"`
}

type Statistics struct {
	TotalRecords      int64            `json:"total_records"`
	ByCategory        map[string]int64 `json:"by_category"`
	AverageConfidence float64          `json:"average_confidence"`
}

type RegisterPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileUpdate struct {
	Name            string `json:"name"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type RecordPayload struct {
	WasteType           string
	Category            string
	Confidence          float64
	Recyclable          bool
	DisposalMethod      string
	Description         string
	ImageFilename       string
	ImageData           []byte
	DetectedImageBase64 string
}
