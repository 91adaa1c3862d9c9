package timewindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcin-skalski/mngtool/internal/apperrors"
)

func TestParseLocalDateTime(t *testing.T) {
	v, err := ParseLocalDateTime("202405300000")
	require.NoError(t, err)
	assert.Equal(t, LocalDateTime{Year: 2024, Month: 5, Day: 30}, v)

	v, err = ParseLocalDateTime("20240601")
	require.NoError(t, err)
	assert.Equal(t, LocalDateTime{Year: 2024, Month: 6, Day: 1}, v)

	v, err = ParseLocalDateTime("2024-06-01 13:45")
	require.NoError(t, err)
	assert.Equal(t, LocalDateTime{Year: 2024, Month: 6, Day: 1, Hour: 13, Minute: 45}, v)
}

func TestParseLocalDateTimeRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
		msg  string
	}{
		{"bad month", "2024-13-01", "month"},
		{"ten digits", "2024010112", "YYYYMMDD"},
		{"zero day", "20240100", "day"},
		{"hour", "202401012500", "hour"},
		{"minute", "202401012360", "minute"},
		{"feb 30", "20240230", "calendar"},
		{"april 31", "20240431", "calendar"},
		{"non leap feb 29", "20230229", "calendar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLocalDateTime(tt.in)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParseLocalDateTimeLeapDay(t *testing.T) {
	v, err := ParseLocalDateTime("20240229")
	require.NoError(t, err)
	assert.Equal(t, 29, v.Day)
}

func TestResolveTimeZone(t *testing.T) {
	spec, label, err := ResolveTimeZone("Asia/Tokyo")
	require.NoError(t, err)
	assert.Equal(t, KindIANA, spec.Kind)
	assert.Equal(t, "Asia/Tokyo", spec.Identifier)
	assert.Equal(t, "Asia/Tokyo", label)

	spec, label, err = ResolveTimeZone("+0900")
	require.NoError(t, err)
	assert.Equal(t, KindOffset, spec.Kind)
	assert.Equal(t, 540, spec.OffsetMinutes)
	assert.Equal(t, "UTC+09:00", label)

	spec, label, err = ResolveTimeZone("-05:30")
	require.NoError(t, err)
	assert.Equal(t, -330, spec.OffsetMinutes)
	assert.Equal(t, "UTC-05:30", label)

	spec, _, err = ResolveTimeZone("local")
	require.NoError(t, err)
	assert.Equal(t, KindIANA, spec.Kind)
	assert.NotEmpty(t, spec.Identifier)

	_, _, err = ResolveTimeZone("Mars/Olympus_Mons")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestToUTCOffset(t *testing.T) {
	got, err := ToUTC(LocalDateTime{Year: 2024, Month: 1, Day: 1}, Spec{Kind: KindOffset, OffsetMinutes: 540})
	require.NoError(t, err)
	assert.Equal(t, "2023-12-31T15:00:00Z", got.Format(time.RFC3339))
}

func TestToUTCZoneAcrossDST(t *testing.T) {
	spec, _, err := ResolveTimeZone("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		in   LocalDateTime
		want string
	}{
		{LocalDateTime{Year: 2024, Month: 2, Day: 1}, "2024-02-01T05:00:00Z"},
		{LocalDateTime{Year: 2024, Month: 6, Day: 1}, "2024-06-01T04:00:00Z"},
		{LocalDateTime{Year: 2024, Month: 11, Day: 3, Hour: 12}, "2024-11-03T17:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			got, err := ToUTC(tt.in, spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format(time.RFC3339))

			back := got.In(spec.loc)
			assert.Equal(t, tt.in.Hour, back.Hour())
			assert.Equal(t, tt.in.Day, back.Day())
		})
	}
}

func TestToUTCNonexistentWallClock(t *testing.T) {
	spec, _, err := ResolveTimeZone("America/New_York")
	require.NoError(t, err)

	// 02:30 is skipped when clocks spring forward.
	_, err = ToUTC(LocalDateTime{Year: 2024, Month: 3, Day: 10, Hour: 2, Minute: 30}, spec)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeTimeZoneResolution))
}
