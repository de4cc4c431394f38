package refresh

import (
	"context"
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	testutil "github.com/charlesng35/weatherbot/internal/database/testutil"
	"github.com/charlesng35/weatherbot/internal/monitoring"
	"github.com/charlesng35/weatherbot/internal/services"
	"github.com/charlesng35/weatherbot/internal/weather"
)

type flakyClient struct {
	failing map[string]error
}

func (c flakyClient) Current(ctx context.Context, city string) (weather.Observation, error) {
	if err, ok := c.failing[city]; ok {
		return weather.Observation{}, err
	}
	return weather.NewOfflineClient().Current(ctx, city)
}

func newRefreshFixture(t *testing.T, client weather.Client) (*services.LookupService, *services.RecordService) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	records, err := services.NewRecordService(db)
	require.NoError(t, err)

	lookup, err := services.NewLookupService(client, records)
	require.NoError(t, err)

	return lookup, records
}

func TestRunOncePersistsEachCity(t *testing.T) {
	lookup, records := newRefreshFixture(t, weather.NewOfflineClient())
	refresher := NewRefresher(lookup, []string{"london", "Paris"})

	require.NoError(t, refresher.RunOnce(context.Background()))

	for _, city := range []string{"London", "Paris"} {
		count, err := records.CountByCity(context.Background(), city)
		require.NoError(t, err)
		require.Equal(t, int64(1), count)
	}

	require.NoError(t, refresher.RunOnce(context.Background()))

	count, err := records.CountByCity(context.Background(), "London")
	require.NoError(t, err)
	require.Equal(t, int64(2), count, "every run appends a fresh record")

	summary, ok := monitoring.JobSnapshot(JobName)
	require.True(t, ok)
	require.Equal(t, "success", summary.LastStatus)
}

func TestRunOnceAggregatesFailures(t *testing.T) {
	client := flakyClient{failing: map[string]error{"Gotham": weather.ErrNotFound}}
	lookup, records := newRefreshFixture(t, client)
	refresher := NewRefresher(lookup, []string{"London", "Gotham", "Paris"})

	err := refresher.RunOnce(context.Background())
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 1)
	require.Contains(t, err.Error(), "refresh Gotham")

	for _, city := range []string{"London", "Paris"} {
		count, countErr := records.CountByCity(context.Background(), city)
		require.NoError(t, countErr)
		require.Equal(t, int64(1), count, "failures must not starve the remaining cities")
	}

	count, err := records.CountByCity(context.Background(), "Gotham")
	require.NoError(t, err)
	require.Zero(t, count)

	summary, ok := monitoring.JobSnapshot(JobName)
	require.True(t, ok)
	require.Equal(t, "failure", summary.LastStatus)
	require.Contains(t, summary.LastError, "Gotham")
}

func TestRefresherStaysDormantWithoutCities(t *testing.T) {
	lookup, _ := newRefreshFixture(t, weather.NewOfflineClient())

	refresher := NewRefresher(lookup, nil)
	require.NoError(t, refresher.Start())
	require.NoError(t, refresher.RunOnce(context.Background()))

	refresher = NewRefresher(nil, []string{"London"})
	require.NoError(t, refresher.Start())
	require.NoError(t, refresher.RunOnce(context.Background()))
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	lookup, _ := newRefreshFixture(t, weather.NewOfflineClient())
	refresher := NewRefresher(lookup, []string{"London"}, WithSchedule("not-a-schedule"))

	require.Error(t, refresher.Start())
}

func TestStartAndStop(t *testing.T) {
	lookup, _ := newRefreshFixture(t, weather.NewOfflineClient())
	refresher := NewRefresher(lookup, []string{"London"},
		WithSchedule("@every 1h"),
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
	)

	require.NoError(t, refresher.Start())
	<-refresher.Stop().Done()
}
