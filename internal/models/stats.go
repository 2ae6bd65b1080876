package models

type SystemStats struct {
	TotalUsers   int `json:"total_users"`
	Admins       int `json:"admins"`
	Owners       int `json:"owners"`
	RegularUsers int `json:"regular_users"`

	PropertiesByStatus map[string]int `json:"properties_by_status"`
	TotalProperties    int            `json:"total_properties"`

	ActiveSubscriptions int     `json:"active_subscriptions"`
	SuccessfulPayments  int     `json:"successful_payments"`
	Revenue             float64 `json:"revenue"`
}
