package types

// Filter represents query parameters for filtering and pagination.
//
//	/api/tasks?search=Elm&sort[created_at]=desc&filter[status]=pending,accepted&limit=10&page=2
type Filter struct {
	Search         string                 `json:"search,omitempty"`
	Sort           map[string]string      `json:"sort,omitempty"`
	Filter         map[string]interface{} `json:"filter,omitempty"`
	Limit          int                    `json:"limit"`
	Offset         int                    `json:"offset"`
	Page           int                    `json:"page"`
	WithPagination bool                   `json:"with_pagination"`
}

// Where adds an exact-match condition on field. Empty values are ignored so
// optional query parameters can be passed straight through.
func (f *Filter) Where(field, value string) {
	if value == "" {
		return
	}
	if f.Filter == nil {
		f.Filter = make(map[string]interface{})
	}
	f.Filter[field] = value
}

// Pagination represents pagination metadata.
type Pagination struct {
	TotalCount uint64 `json:"total_count"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"total_pages"`
}
