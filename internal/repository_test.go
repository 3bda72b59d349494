package internal

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rm-hull/gas-prices-ingest/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestDB(t *testing.T) GasPricesRepository {
	dbPath := DatabaseFile(t.TempDir())

	db, err := Connect(dbPath)
	require.NoError(t, err)

	repo := NewGasPricesRepository(db, dbPath, discardLogger())
	t.Cleanup(func() {
		_ = repo.Close()
	})

	require.NoError(t, repo.Initialize(context.Background()))
	return repo
}

func acmeStation() *models.StationDetails {
	return &models.StationDetails{
		Brand:       "Acme",
		Street:      "Main",
		HouseNumber: "1",
		Place:       "Town",
		PostCode:    "12345",
	}
}

func countRows(t *testing.T, repo GasPricesRepository, query string, args ...any) int {
	var n int
	require.NoError(t, repo.(*sqliteRepository).db.QueryRow(query, args...).Scan(&n))
	return n
}

func TestInitializeIsIdempotent(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.Initialize(ctx))
	require.NoError(t, repo.Initialize(ctx))

	rows, err := repo.(*sqliteRepository).db.Query("SELECT id, name FROM gastypes ORDER BY id")
	require.NoError(t, err)
	defer func() {
		_ = rows.Close()
	}()

	var got []string
	for rows.Next() {
		var id int
		var name string
		require.NoError(t, rows.Scan(&id, &name))
		got = append(got, models.FuelType(id).String()+"="+name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"e5=e5", "e10=e10", "diesel=diesel"}, got)

	assert.Equal(t, 3, countRows(t, repo,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('gastypes', 'gasstations', 'gasprices')"))
}

func TestInitializeKeepsExistingRows(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.InsertStation(ctx, "S1", acmeStation()))
	_, err := repo.InsertPrices(ctx, models.PriceMap{
		"S1": {Status: models.StatusOpen, E5: models.Price(1.709)},
	}, "2024-01-01", "08:00:00")
	require.NoError(t, err)

	require.NoError(t, repo.Initialize(ctx))

	exists, err := repo.StationExists(ctx, "S1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 1, countRows(t, repo, "SELECT COUNT(*) FROM gasprices"))
}

func TestStationLifecycle(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	exists, err := repo.StationExists(ctx, "S1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.InsertStation(ctx, "S1", acmeStation()))

	exists, err = repo.StationExists(ctx, "S1")
	require.NoError(t, err)
	assert.True(t, exists)

	var name, street, houseNumber, place, postalCode string
	err = repo.(*sqliteRepository).db.QueryRow(
		"SELECT name, street, housenumber, place, postalcode FROM gasstations WHERE id = ?", "S1",
	).Scan(&name, &street, &houseNumber, &place, &postalCode)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Main", "1", "Town", "12345"}, []string{name, street, houseNumber, place, postalCode})

	t.Run("duplicate id is rejected", func(t *testing.T) {
		other := acmeStation()
		other.Street = "Other"
		err := repo.InsertStation(ctx, "S1", other)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConstraintViolation))
	})

	t.Run("duplicate address is rejected", func(t *testing.T) {
		err := repo.InsertStation(ctx, "S9", acmeStation())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConstraintViolation))

		exists, err := repo.StationExists(ctx, "S9")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("missing details", func(t *testing.T) {
		err := repo.InsertStation(ctx, "S2", nil)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrConstraintViolation))
	})
}

func TestInsertPrices(t *testing.T) {
	ctx := context.Background()

	t.Run("open station writes one row per fuel type", func(t *testing.T) {
		repo := setupTestDB(t)
		require.NoError(t, repo.InsertStation(ctx, "S1", acmeStation()))

		count, err := repo.InsertPrices(ctx, models.PriceMap{
			"S1": {Status: models.StatusOpen, E5: models.Price(1.709), E10: models.Price(1.649), Diesel: models.Price(1.599)},
		}, "2024-01-01", "08:00:00")
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		rows, err := repo.(*sqliteRepository).db.Query(
			"SELECT stationid, gastypeid, date, time, price FROM gasprices ORDER BY gastypeid")
		require.NoError(t, err)
		defer func() {
			_ = rows.Close()
		}()

		var got []models.PriceObservation
		for rows.Next() {
			var obs models.PriceObservation
			require.NoError(t, rows.Scan(&obs.StationId, &obs.FuelType, &obs.Date, &obs.Time, &obs.Price))
			got = append(got, obs)
		}
		require.NoError(t, rows.Err())

		assert.Equal(t, []models.PriceObservation{
			{StationId: "S1", FuelType: models.E5, Date: "2024-01-01", Time: "08:00:00", Price: 1.709},
			{StationId: "S1", FuelType: models.E10, Date: "2024-01-01", Time: "08:00:00", Price: 1.649},
			{StationId: "S1", FuelType: models.Diesel, Date: "2024-01-01", Time: "08:00:00", Price: 1.599},
		}, got)
	})

	t.Run("closed station writes nothing", func(t *testing.T) {
		repo := setupTestDB(t)
		require.NoError(t, repo.InsertStation(ctx, "S2", acmeStation()))

		count, err := repo.InsertPrices(ctx, models.PriceMap{
			"S2": {Status: models.StatusClosed},
		}, "2024-01-01", "08:00:00")
		require.NoError(t, err)
		assert.Zero(t, count)
		assert.Zero(t, countRows(t, repo, "SELECT COUNT(*) FROM gasprices"))
	})

	t.Run("absent fuel types are skipped", func(t *testing.T) {
		repo := setupTestDB(t)
		require.NoError(t, repo.InsertStation(ctx, "S3", acmeStation()))

		count, err := repo.InsertPrices(ctx, models.PriceMap{
			"S3": {Status: models.StatusOpen, Diesel: models.Price(1.599)},
		}, "2024-01-01", "08:00:00")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Equal(t, 1, countRows(t, repo, "SELECT COUNT(*) FROM gasprices WHERE gastypeid = 3"))
	})

	t.Run("existing key is not overwritten", func(t *testing.T) {
		repo := setupTestDB(t)
		require.NoError(t, repo.InsertStation(ctx, "S1", acmeStation()))

		_, err := repo.InsertPrices(ctx, models.PriceMap{
			"S1": {Status: models.StatusOpen, E5: models.Price(1.709)},
		}, "2024-01-01", "08:00:00")
		require.NoError(t, err)

		_, err = repo.InsertPrices(ctx, models.PriceMap{
			"S1": {Status: models.StatusOpen, E5: models.Price(1.999)},
		}, "2024-01-01", "08:00:00")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConstraintViolation))

		assert.Equal(t, 1, countRows(t, repo, "SELECT COUNT(*) FROM gasprices WHERE price = 1.709"))
		assert.Zero(t, countRows(t, repo, "SELECT COUNT(*) FROM gasprices WHERE price = 1.999"))
	})

	t.Run("failed batch is rolled back", func(t *testing.T) {
		repo := setupTestDB(t)
		require.NoError(t, repo.InsertStation(ctx, "S1", acmeStation()))

		// S0 sorts first and is valid; S9 is unknown and trips the foreign key
		other := acmeStation()
		other.Street = "Second"
		require.NoError(t, repo.InsertStation(ctx, "S0", other))

		_, err := repo.InsertPrices(ctx, models.PriceMap{
			"S0": {Status: models.StatusOpen, E5: models.Price(1.709)},
			"S9": {Status: models.StatusOpen, E5: models.Price(1.719)},
		}, "2024-01-01", "08:00:00")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConstraintViolation))
		assert.Zero(t, countRows(t, repo, "SELECT COUNT(*) FROM gasprices"))
	})

	t.Run("empty map is a no-op", func(t *testing.T) {
		repo := setupTestDB(t)
		count, err := repo.InsertPrices(ctx, models.PriceMap{}, "2024-01-01", "08:00:00")
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestLatestPrices(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.InsertStation(ctx, "S1", acmeStation()))
	other := acmeStation()
	other.Brand = "Bolt"
	other.Street = "High Street"
	require.NoError(t, repo.InsertStation(ctx, "S2", other))

	_, err := repo.InsertPrices(ctx, models.PriceMap{
		"S1": {Status: models.StatusOpen, E5: models.Price(1.709), Diesel: models.Price(1.599)},
		"S2": {Status: models.StatusOpen, E10: models.Price(1.659)},
	}, "2024-01-01", "08:00:00")
	require.NoError(t, err)

	_, err = repo.InsertPrices(ctx, models.PriceMap{
		"S1": {Status: models.StatusOpen, E5: models.Price(1.689)},
	}, "2024-01-01", "08:15:00")
	require.NoError(t, err)

	t.Run("most recent price per fuel type", func(t *testing.T) {
		results, err := repo.LatestPrices(ctx, nil)
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, "S1", results[0].StationId)
		assert.Equal(t, "Acme", results[0].Name)
		assert.Equal(t, models.PriceInfo{Price: 1.689, Date: "2024-01-01", Time: "08:15:00"}, results[0].Prices["e5"])
		assert.Equal(t, models.PriceInfo{Price: 1.599, Date: "2024-01-01", Time: "08:00:00"}, results[0].Prices["diesel"])
		assert.NotContains(t, results[0].Prices, "e10")

		assert.Equal(t, "S2", results[1].StationId)
		assert.Equal(t, 1.659, results[1].Prices["e10"].Price)
	})

	t.Run("filtered by station id", func(t *testing.T) {
		results, err := repo.LatestPrices(ctx, []string{"S2"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "S2", results[0].StationId)
	})

	t.Run("unknown station", func(t *testing.T) {
		results, err := repo.LatestPrices(ctx, []string{"nope"})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("several ids including unknown and repeated", func(t *testing.T) {
		results, err := repo.LatestPrices(ctx, []string{"S2", "nope", "S1", "S2"})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "S1", results[0].StationId)
		assert.Equal(t, 1.689, results[0].Prices["e5"].Price)
		assert.Equal(t, "S2", results[1].StationId)
	})
}

func TestLatestPricesQuery(t *testing.T) {
	query, args := latestPricesQuery(nil)
	assert.Equal(t, latestPricesSQL, query)
	assert.Empty(t, args)

	query, args = latestPricesQuery([]string{"S1", "S2"})
	assert.Contains(t, query, "WHERE p.stationid IN (?, ?)")
	assert.NotContains(t, query, stationFilterMarker)
	assert.Equal(t, []any{"S1", "S2"}, args)
}

func TestCheck(t *testing.T) {
	repo := setupTestDB(t)

	check := repo.Check()
	assert.Equal(t, "sqlite", check.Name())
	assert.True(t, check.Pass())
}
