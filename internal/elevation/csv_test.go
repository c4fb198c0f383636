package elevation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	in := `z,x,y,elevation
# comment
11,300,400,50
11,300,400,42
12, 600, 800, 9

10,1,2
10,1,2,70000
9,5,6,3
`
	recs, skipped, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, []Record{
		{Z: 9, X: 5, Y: 6, Elevation: 3},
		{Z: 11, X: 300, Y: 400, Elevation: 50},
		{Z: 12, X: 600, Y: 800, Elevation: 9},
	}, recs)
	assert.NoError(t, Validate(recs))
}

func TestValidate(t *testing.T) {
	assert.Error(t, Validate([]Record{{Z: 2, X: 4, Y: 0}}))
	assert.Error(t, Validate([]Record{{Z: 17}}))
	assert.NoError(t, Validate([]Record{{Z: 2, X: 3, Y: 3}}))
}
