package domain

import "time"

// Department is an organizational unit tickets can be routed to.
type Department struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}
