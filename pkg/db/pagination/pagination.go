package pagination

import "resource-ledger/pkg/errutil"

// Pagination is a 1-based page request.
type Pagination struct {
	Page     int `form:"page,default=1" json:"page"`
	PageSize int `form:"page_size,default=50" json:"page_size"`
}

type PageInfo struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
	HasNext  bool  `json:"has_next"`
	HasPrev  bool  `json:"has_prev"`
}

// Validate rejects pages below 1 and sizes outside [1, maxSize].
func (p Pagination) Validate(maxSize int) error {
	if p.Page < 1 {
		return errutil.InvalidArgument("page must be >= 1")
	}
	if p.PageSize < 1 || (maxSize > 0 && p.PageSize > maxSize) {
		return errutil.InvalidArgument("page_size out of range")
	}
	return nil
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func (p Pagination) Limit() int {
	return p.PageSize
}

// BuildPageInfo derives navigation flags from the total row count and the
// number of rows returned for the current page.
func BuildPageInfo(p Pagination, total int64, returned int) PageInfo {
	return PageInfo{
		Page:     p.Page,
		PageSize: p.PageSize,
		Total:    total,
		HasNext:  int64(p.Offset()+returned) < total,
		HasPrev:  p.Page > 1,
	}
}
