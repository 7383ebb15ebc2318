package models

import "time"

// Space 可预约的场地（只读参考数据）
type Space struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Location    string    `json:"location" db:"location"`
	Capacity    int       `json:"capacity" db:"capacity"`
	HourlyRate  int64     `json:"hourly_rate" db:"hourly_rate"`
	Description string    `json:"description,omitempty" db:"description"`
	ImageURL    string    `json:"image_url,omitempty" db:"image_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type ReservationStatus string

const (
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Reservation 场地预约记录；只会从 confirmed 变为 cancelled，不会被删除
type Reservation struct {
	ID              string            `json:"id" db:"id"`
	SpaceID         string            `json:"space_id" db:"space_id"`
	UserID          string            `json:"user_id" db:"user_id"`
	ReservationDate string            `json:"reservation_date" db:"reservation_date"` // YYYY-MM-DD
	StartTime       string            `json:"start_time" db:"start_time"`             // HH:MM
	EndTime         string            `json:"end_time" db:"end_time"`                 // HH:MM
	TotalAmount     int64             `json:"total_amount" db:"total_amount"`
	Status          ReservationStatus `json:"status" db:"status"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
}

// ReservationWithSpace 我的预约列表条目
type ReservationWithSpace struct {
	Reservation
	SpaceName     string `json:"space_name"`
	SpaceLocation string `json:"space_location"`
	DisplayState  string `json:"display_state"` // confirmed | completed | cancelled
	Cancellable   bool   `json:"cancellable"`
}

// TimeSlot 可用性计算结果中的单个时间段
type TimeSlot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// SpaceAvailability 某场地某日的时间段可用性
type SpaceAvailability struct {
	SpaceID string     `json:"space_id"`
	Date    string     `json:"date"`
	Slots   []TimeSlot `json:"slots"`
}
