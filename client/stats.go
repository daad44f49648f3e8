package client

// DashboardStats summarizes the visible request list for the dashboard cards.
type DashboardStats struct {
	Total     int
	Pending   int
	Urgent    int
	Fulfilled int
}

// Summarize counts the dashboard figures from the rows. Urgent counts by
// priority regardless of status, so a fulfilled urgent request still shows in
// both cards.
func Summarize(rows []Request) DashboardStats {
	stats := DashboardStats{Total: len(rows)}
	for _, row := range rows {
		switch row.Status {
		case "pending":
			stats.Pending++
		case "fulfilled":
			stats.Fulfilled++
		}
		if row.Priority == "urgent" {
			stats.Urgent++
		}
	}
	return stats
}
