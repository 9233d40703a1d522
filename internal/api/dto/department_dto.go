package dto

import "time"

// CreateDepartmentRequest payload.
type CreateDepartmentRequest struct {
	Name        string `json:"name" validate:"notblank,max=128"`
	Description string `json:"description" validate:"max=1000"`
}

// UpdateDepartmentRequest carries optional changes.
type UpdateDepartmentRequest struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=128"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// DepartmentResponse is the public department view.
type DepartmentResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// FirstResponseEntry is one ticket's first-response delay.
type FirstResponseEntry struct {
	TicketID string  `json:"ticket_id"`
	Minutes  float64 `json:"minutes"`
}

// OverviewResponse is the analytics dashboard payload.
type OverviewResponse struct {
	Total                       int                  `json:"total"`
	ByStatus                    map[string]int       `json:"by_status"`
	ByIssueType                 map[string]int       `json:"by_issue_type"`
	ByDepartment                map[string]int       `json:"by_department"`
	AverageFirstResponseMinutes float64              `json:"average_first_response_minutes"`
	FirstResponses              []FirstResponseEntry `json:"first_responses"`
}

// StatisticsResponse summarises thread counts.
type StatisticsResponse struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"by_status"`
	ByDepartment map[string]int `json:"by_department"`
}
