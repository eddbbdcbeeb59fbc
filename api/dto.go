package api

import "time"

type AppointmentRequest struct {
	Name         string `json:"name" form:"name" validate:"required"`
	Email        string `json:"email" form:"email" validate:"required,email"`
	MobileNumber string `json:"mobile_number" form:"mobile_number" validate:"required,mobile"`
	Date         string `json:"date" form:"date" validate:"required,date"`
	StartTime    string `json:"start_time" form:"start_time" validate:"required,hhmm"`
	EndTime      string `json:"end_time" form:"end_time" validate:"required,hhmm"`
}

type RescheduleRequest struct {
	Date      string `json:"date" form:"date" validate:"required,date"`
	StartTime string `json:"start_time" form:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time" form:"end_time" validate:"required,hhmm"`
}

type SlotsQuery struct {
	Date string `json:"date" validate:"required,date"`
}

type ListQuery struct {
	Page   int    `json:"page" validate:"min=1"`
	Limit  int    `json:"limit" validate:"min=1,max=100"`
	Search string `json:"search"`
}

type AppointmentResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	MobileNumber string    `json:"mobile_number"`
	Date         string    `json:"date"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type PageMeta struct {
	TotalDocs   int  `json:"total_docs"`
	Limit       int  `json:"limit"`
	Page        int  `json:"page"`
	TotalPages  int  `json:"total_pages"`
	HasPrevPage bool `json:"has_prev_page"`
	HasNextPage bool `json:"has_next_page"`
	PrevPage    *int `json:"prev_page"`
	NextPage    *int `json:"next_page"`
}

type AppointmentPage struct {
	Appointments []AppointmentResponse
	Meta         PageMeta
}

type DateSlotCount struct {
	Date      string `json:"date"`
	Available int    `json:"available"`
	Title     string `json:"title"`
}
