package pagination

import (
	"testing"

	"github.com/stretchr/testify/require"

	"resource-ledger/pkg/errutil"
)

func TestValidate(t *testing.T) {
	require.NoError(t, Pagination{Page: 1, PageSize: 10}.Validate(100))
	require.True(t, errutil.Is(Pagination{Page: 0, PageSize: 10}.Validate(100), errutil.StatusBadRequest))
	require.True(t, errutil.Is(Pagination{Page: 1, PageSize: 0}.Validate(100), errutil.StatusBadRequest))
	require.True(t, errutil.Is(Pagination{Page: 1, PageSize: 101}.Validate(100), errutil.StatusBadRequest))
}

func TestBuildPageInfo(t *testing.T) {
	p := Pagination{Page: 2, PageSize: 10}
	require.Equal(t, 10, p.Offset())

	info := BuildPageInfo(p, 25, 10)
	require.True(t, info.HasNext)
	require.True(t, info.HasPrev)

	info = BuildPageInfo(Pagination{Page: 3, PageSize: 10}, 25, 5)
	require.False(t, info.HasNext)

	info = BuildPageInfo(Pagination{Page: 1, PageSize: 10}, 0, 0)
	require.False(t, info.HasNext)
	require.False(t, info.HasPrev)
}
