package types

// Todo is scoped per branch and replaced atomically: Storage.ReplaceTodos
// is the only write path (§3, §4.A — "no incremental CRUD").
type Todo struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Status   string `json:"status"` // "pending" | "in_progress" | "completed"
	Priority string `json:"priority,omitempty"`
	Time     Timestamps `json:"time"`
}
