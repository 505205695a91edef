package dto

// StatsDTO is scoped to all tasks for admins and to own tasks for technicians.
type StatsDTO struct {
	Total            int64  `json:"total"`
	Pending          int64  `json:"pending"`
	Accepted         int64  `json:"accepted"`
	InProgress       int64  `json:"in_progress"`
	Completed        int64  `json:"completed"`
	Successful       int64  `json:"successful"`
	Unsuccessful     int64  `json:"unsuccessful"`
	TotalTechnicians *int64 `json:"total_technicians,omitempty"`
}
