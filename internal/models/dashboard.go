package models

import "time"

// TeacherDashboard aggregates a teacher's day and week at a glance.
type TeacherDashboard struct {
	TodayClasses   int            `json:"today_classes"`
	WeeklyHours    float64        `json:"weekly_hours"`
	TotalClasses   int            `json:"total_classes"`
	TotalCourses   int            `json:"total_courses"`
	UnreadMessages int            `json:"unread_messages"`
	PendingLeaves  int            `json:"pending_leaves"`
	TodaySchedule  []WorkSchedule `json:"today_schedule"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// AdminStats aggregates system-wide counts for the admin dashboard.
type AdminStats struct {
	Users       UserStats  `json:"users"`
	Courses     int        `json:"courses"`
	Assignments int        `json:"assignments"`
	Classes     int        `json:"classes"`
	Leave       LeaveStats `json:"leave_requests"`
	GeneratedAt time.Time  `json:"generated_at"`
}
