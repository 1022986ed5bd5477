package pagination

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTotalPages(t *testing.T) {
	require.Equal(t, 7, TotalPages(134, 20))
	require.Equal(t, 0, TotalPages(0, 20))
	require.Equal(t, 1, TotalPages(20, 20))
	require.Equal(t, 2, TotalPages(21, 20))
	require.Equal(t, 1, TotalPages(1, 20))
}

func TestPaginate(t *testing.T) {
	meta := Paginate(134, 3, 20)
	require.Equal(t, Meta{Page: 3, PerPage: 20, Total: 134, TotalPages: 7}, meta)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(1, 1))
	require.ErrorIs(t, Validate(0, 20), ErrInvalidPagination)
	require.ErrorIs(t, Validate(1, 0), ErrInvalidPagination)
	require.ErrorIs(t, Validate(-1, -1), ErrInvalidPagination)
}

func TestOffset(t *testing.T) {
	require.Equal(t, int64(0), Offset(1, 20))
	require.Equal(t, int64(40), Offset(3, 20))
}

func TestNormalize(t *testing.T) {
	page, perPage := Normalize(0, 0)
	require.Equal(t, DefaultPage, page)
	require.Equal(t, DefaultPerPage, perPage)

	page, perPage = Normalize(2, 1000)
	require.Equal(t, 2, page)
	require.Equal(t, MaxPerPage, perPage)

	page, perPage = Normalize(-1, -5)
	require.Equal(t, -1, page)
	require.Equal(t, -5, perPage)
}
