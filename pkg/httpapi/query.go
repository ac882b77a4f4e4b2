package httpapi

import (
	"strconv"

	"resource-ledger/pkg/db/pagination"
	"resource-ledger/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// Page reads ?page and ?page_size, defaulting to the first page of
// defaultSize rows. Range checks are left to the service.
func Page(c *gin.Context, defaultSize int) (pagination.Pagination, error) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		return pagination.Pagination{}, errutil.InvalidArgument("page must be an integer")
	}
	size, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultSize)))
	if err != nil {
		return pagination.Pagination{}, errutil.InvalidArgument("page_size must be an integer")
	}
	return pagination.Pagination{Page: page, PageSize: size}, nil
}
