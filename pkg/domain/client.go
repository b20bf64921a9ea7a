package domain

// Client is a customer organisation served by the courier.
type Client struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Branch is a client location that books runs.
type Branch struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ClientID int64  `json:"client_id"`
}
