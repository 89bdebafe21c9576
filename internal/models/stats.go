package models

// FleetStats summarises registry occupancy
type FleetStats struct {
	Total           int     `json:"total_bots"`
	Connected       int     `json:"connected_bots"`
	MaxBots         int     `json:"max_bots"`
	UsagePercentage float64 `json:"usage_percentage"`
}
