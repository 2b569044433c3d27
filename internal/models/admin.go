package models

// DashboardStats is the response of GET /api/admin/dashboard
type DashboardStats struct {
	TotalUsers      int `json:"totalUsers"`
	BannedUsers     int `json:"bannedUsers"`
	TotalQuestions  int `json:"totalQuestions"`
	ActiveQuestions int `json:"activeQuestions"`
	TotalAttempts   int `json:"totalAttempts"`
	AttemptsToday   int `json:"attemptsToday"`
	TotalPosts      int `json:"totalPosts"`
	ActiveToday     int `json:"activeToday"`
}

// BanRequest is the body of PUT /api/admin/users/{id}/ban
type BanRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// RoleRequest is the body of PUT /api/admin/users/{id}/role
type RoleRequest struct {
	Role Role `json:"role" binding:"required,oneof=user admin"`
}
