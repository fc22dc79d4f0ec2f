package lib

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warelink/wpmsync/models"
)

func TestPreviousMonday(t *testing.T) {
	tests := []struct {
		now  time.Time
		want string
	}{
		// Wednesday mid-week
		{time.Date(2025, 6, 11, 15, 30, 0, 0, time.UTC), "20250602"},
		// Monday itself still looks at the preceding ISO week
		{time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), "20250602"},
		// Sunday belongs to the ISO week that started the previous Monday
		{time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC), "20250602"},
		// year boundary
		{time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC), "20251222"},
	}

	for _, test := range tests {
		assert.Equal(t, test.want, previousMonday(test.now).Format(dateLayout), "now=%s", test.now)
	}
}

func TestResolveDynamicPreviousMonday(t *testing.T) {
	now := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

	resolved := ResolveDynamic("DYNAMIC:PreviousMondayDate", now, time.Time{})
	assert.Equal(t, "20250602", resolved)
}

func TestResolveDynamicDateOverride(t *testing.T) {
	now := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	override := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	resolved := ResolveDynamic("DYNAMIC:PreviousMondayDate", now, override)
	assert.Equal(t, "20250301", resolved)
}

func TestResolveDynamicLiteralPassthrough(t *testing.T) {
	now := time.Now()

	assert.Equal(t, "1303394", ResolveDynamic("1303394", now, time.Time{}))
	assert.Equal(t, "DYNAMIC:NoSuchKeyword", ResolveDynamic("DYNAMIC:NoSuchKeyword", now, time.Time{}))
}

func TestResolveParameters(t *testing.T) {
	now := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	params := map[string]models.ParamValue{
		"ARTC": {Val1: "1303394", Object: true},
		"DATE": {Raw: "DYNAMIC:PreviousMondayDate"},
		"WHRS": {Raw: "001"},
	}

	resolved := ResolveParameters(params, now, time.Time{})

	assert.Equal(t, params["ARTC"], resolved["ARTC"])
	assert.Equal(t, "20250602", resolved["DATE"])
	assert.Equal(t, "001", resolved["WHRS"])
}

func TestIsKnownDynamic(t *testing.T) {
	assert.True(t, IsKnownDynamic("literal"))
	assert.True(t, IsKnownDynamic("DYNAMIC:PreviousMondayDate"))
	assert.False(t, IsKnownDynamic("DYNAMIC:NoSuchKeyword"))
}
