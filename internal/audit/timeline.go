package audit

import "time"

// TimelineFilters menampung filter dasar untuk audit timeline.
type TimelineFilters struct {
	Action   string
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

// TimelineRow mewakili satu baris audit timeline.
type TimelineRow struct {
	ID           int64          `json:"id"`
	At           time.Time      `json:"occurred_at"`
	ActorID      int64          `json:"actor_id,omitempty"`
	ActorName    string         `json:"actor_name,omitempty"`
	ActorAccount string         `json:"actor_account,omitempty"`
	Action       string         `json:"action"`
	Entity       string         `json:"entity"`
	EntityID     string         `json:"entity_id"`
	Meta         map[string]any `json:"meta,omitempty"`
}

// PagingInfo menyimpan metadata pagination sederhana.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// WindowQuery adalah parameter query satu halaman timeline.
type WindowQuery struct {
	Action string
	From   time.Time
	To     time.Time
	Offset int
	Limit  int
}
