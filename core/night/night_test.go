package night

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/nightplan/core/ephemeris"
	"github.com/kilianp07/nightplan/core/model"
)

var laPalma = model.Site{Name: "ORM", Latitude: 28.7606, Longitude: -17.8816, Altitude: 2332}

func between(t *testing.T, name string, got, lo, hi time.Time) {
	t.Helper()
	if got.Before(lo) || got.After(hi) {
		t.Errorf("%s = %s, want within [%s, %s]", name, got.Format(time.RFC3339), lo.Format(time.RFC3339), hi.Format(time.RFC3339))
	}
}

func TestBuildLaPalmaWinter(t *testing.T) {
	n, err := Build(context.Background(), ephemeris.NewMeeus(), Params{
		Date: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), Site: laPalma, Mode: model.WindowAstronomical,
	})
	require.NoError(t, err)
	day := func(d, h, m int) time.Time { return time.Date(2025, 1, d, h, m, 0, 0, time.UTC) }
	between(t, "sunset", n.Sunset, day(2, 17, 45), day(2, 18, 45))
	between(t, "sunrise", n.Sunrise, day(3, 7, 30), day(3, 8, 30))

	order := []time.Time{n.Sunset, n.NauticalDusk, n.AstronomicalDusk, n.AstronomicalDawn, n.NauticalDawn, n.Sunrise}
	for i := 1; i < len(order); i++ {
		if !order[i].After(order[i-1]) {
			t.Fatalf("solar events out of order at %d: %v", i, order)
		}
	}
	assert.Equal(t, n.AstronomicalDusk, n.GlobalStart)
	assert.Equal(t, n.AstronomicalDawn, n.GlobalEnd)

	assert.Equal(t, n.Len(), len(n.LST))
	assert.Equal(t, n.Len(), len(n.MoonAlt))
	assert.InDelta(t, 60, n.Step().Seconds(), 1)
	assert.Equal(t, n.Sunset, n.Times[0])
	assert.Equal(t, n.Sunrise, n.Times[n.Len()-1])
	for _, v := range n.MoonIllumination {
		if v < 0 || v > 100 {
			t.Fatalf("illumination %v out of range", v)
		}
	}
}

func TestBuildWesternLongitudeSnapsToEvening(t *testing.T) {
	mk := model.Site{Latitude: 19.8207, Longitude: -155.468, Altitude: 4205}
	n, err := Build(context.Background(), ephemeris.NewMeeus(), Params{
		Date: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), Site: mk, Samples: 100,
	})
	require.NoError(t, err)
	between(t, "sunset", n.Sunset, time.Date(2025, 1, 3, 3, 30, 0, 0, time.UTC), time.Date(2025, 1, 3, 4, 45, 0, 0, time.UTC))
	assert.Equal(t, 100, n.Len())
	if n.Sunrise.Sub(n.Sunset) > 16*time.Hour {
		t.Fatalf("night too long: %v", n.Sunrise.Sub(n.Sunset))
	}
}

func TestBuildPolarNight(t *testing.T) {
	tromso := model.Site{Latitude: 69.65, Longitude: 18.96}
	_, err := Build(context.Background(), ephemeris.NewMeeus(), Params{
		Date: time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC), Site: tromso,
	})
	if !errors.Is(err, ErrNoNight) {
		t.Fatalf("expected ErrNoNight got %v", err)
	}
}

func TestBuildTwilightNeverReached(t *testing.T) {
	site := model.Site{Latitude: 60, Longitude: 10}
	n, err := Build(context.Background(), ephemeris.NewMeeus(), Params{
		Date: time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC), Site: site, Mode: model.WindowAstronomical, Samples: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, n.AstronomicalDusk, n.AstronomicalDawn)
	assert.Equal(t, n.Sunset, n.GlobalStart)
	assert.Equal(t, n.Sunrise, n.GlobalEnd)
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, ephemeris.NewMeeus(), Params{Date: time.Now(), Site: laPalma})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation got %v", err)
	}
}

func TestGrid(t *testing.T) {
	start := time.Date(2025, 1, 2, 20, 0, 0, 0, time.UTC)
	n := Grid(start, start.Add(10*time.Hour), 0)
	assert.Equal(t, 601, n.Len())
	assert.Equal(t, time.Minute, n.Step())
	assert.Equal(t, start.Add(10*time.Hour), n.Times[600])
	assert.Equal(t, start, n.GlobalStart)
}

func TestParseDate(t *testing.T) {
	if _, err := ParseDate("2025-13-01"); err == nil {
		t.Fatalf("expected error for month 13")
	}
	d, err := ParseDate("2025-01-02")
	require.NoError(t, err)
	assert.Equal(t, 2, d.Day())
}

func TestMoonCrossings(t *testing.T) {
	start := time.Date(2025, 1, 2, 20, 0, 0, 0, time.UTC)
	n := Grid(start, start.Add(4*time.Minute), 5)
	copy(n.MoonAlt, []float64{-2, -1, 1, 2, -2})
	rise, set := moonCrossings(n, 0)
	assert.Equal(t, start.Add(90*time.Second), rise)
	assert.Equal(t, start.Add(3*time.Minute+30*time.Second), set)
}

func TestSnapAfter(t *testing.T) {
	ref := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)
	got := snapAfter(ref.Add(-30*time.Hour), ref)
	assert.Equal(t, ref.Add(18*time.Hour), got)
	got = snapAfter(ref.Add(50*time.Hour), ref)
	assert.Equal(t, ref.Add(2*time.Hour), got)
}
