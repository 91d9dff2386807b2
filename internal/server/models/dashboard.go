package models

// DashboardStats is the aggregate shown on the admin dashboard.
type DashboardStats struct {
	TotalAccounts    int `json:"total_accounts"`
	EnabledAccounts  int `json:"enabled_accounts"`
	DisabledAccounts int `json:"disabled_accounts"`
	Admins           int `json:"admins"`
	ActiveSessions   int `json:"active_sessions"`
	TotalTasks       int `json:"total_tasks"`
}
