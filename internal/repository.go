package internal

import (
	"context"
	"database/sql"
	_ "embed"
	"log/slog"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mattn/go-sqlite3"
	"github.com/tavsec/gin-healthcheck/checks"

	"github.com/rm-hull/gas-prices-ingest/internal/models"
)

//go:embed sql/seed_gas_types.sql
var seedGasTypesSQL string

//go:embed sql/station_exists.sql
var stationExistsSQL string

//go:embed sql/insert_station.sql
var insertStationSQL string

//go:embed sql/insert_price.sql
var insertPriceSQL string

//go:embed sql/latest_prices.sql
var latestPricesSQL string

const stationFilterMarker = "/* station filter */"

// ErrConstraintViolation marks errors caused by a uniqueness or foreign key
// constraint: a duplicate station, a duplicate price key or a missing station.
var ErrConstraintViolation = errors.New("constraint violation")

type GasPricesRepository interface {
	Initialize(ctx context.Context) error
	StationExists(ctx context.Context, stationId string) (bool, error)
	InsertStation(ctx context.Context, stationId string, details *models.StationDetails) error
	InsertPrices(ctx context.Context, prices models.PriceMap, date, timeOfDay string) (int, error)
	LatestPrices(ctx context.Context, stationIds []string) ([]models.StationPrices, error)
	Check() checks.Check
	Close() error
}

type sqliteRepository struct {
	db     *sql.DB
	dbPath string
	logger *slog.Logger
}

func NewGasPricesRepository(db *sql.DB, dbPath string, logger *slog.Logger) GasPricesRepository {
	return &sqliteRepository{
		db:     db,
		dbPath: dbPath,
		logger: logger,
	}
}

func (repo *sqliteRepository) Initialize(ctx context.Context) (err error) {
	if err = Migrate(repo.dbPath); err != nil {
		return errors.Wrap(err, "failed to migrate schema")
	}

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				repo.logger.Error("error rolling back transaction", "error", rbErr)
			}
		}
	}()

	for _, fuelType := range models.FuelTypes {
		if _, err = tx.ExecContext(ctx, seedGasTypesSQL, int(fuelType), fuelType.String()); err != nil {
			return errors.Wrapf(err, "failed to seed gas type %s", fuelType)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func (repo *sqliteRepository) StationExists(ctx context.Context, stationId string) (bool, error) {
	var exists bool
	if err := repo.db.QueryRowContext(ctx, stationExistsSQL, stationId).Scan(&exists); err != nil {
		return false, errors.Wrapf(err, "failed to look up station %s", stationId)
	}
	return exists, nil
}

func (repo *sqliteRepository) InsertStation(ctx context.Context, stationId string, details *models.StationDetails) error {
	if details == nil {
		return errors.Newf("no details for station %s", stationId)
	}

	if _, err := repo.db.ExecContext(ctx, insertStationSQL, details.ToTuple(stationId)...); err != nil {
		return classify(err, "failed to insert station %s", stationId)
	}
	return nil
}

// InsertPrices writes one row per open station and present fuel type in a
// single transaction. Nothing from the batch persists if any row fails.
func (repo *sqliteRepository) InsertPrices(ctx context.Context, prices models.PriceMap, date, timeOfDay string) (count int, err error) {
	observations := prices.Observations(date, timeOfDay)
	if len(observations) == 0 {
		return 0, nil
	}

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				repo.logger.Error("error rolling back transaction", "error", rbErr)
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertPriceSQL)
	if err != nil {
		return 0, errors.Wrap(err, "failed to prepare statement")
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			repo.logger.Warn("failed to close statement", "error", err)
		}
	}()

	for _, observation := range observations {
		if _, err = stmt.ExecContext(ctx, observation.ToTuple()...); err != nil {
			return 0, classify(err, "failed to insert %s price for station %s",
				observation.FuelType, observation.StationId)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit transaction")
	}

	return len(observations), nil
}

func (repo *sqliteRepository) LatestPrices(ctx context.Context, stationIds []string) ([]models.StationPrices, error) {
	query, args := latestPricesQuery(stationIds)
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute latest prices query")
	}
	defer func() {
		if err := rows.Close(); err != nil {
			repo.logger.Warn("failed to close rows", "error", err)
		}
	}()

	results := make([]models.StationPrices, 0)
	for rows.Next() {
		var station models.StationPrices
		var fuelType string
		var info models.PriceInfo
		if err := rows.Scan(
			&station.StationId, &station.Name, &station.Street, &station.HouseNumber, &station.Place, &station.PostCode,
			&fuelType, &info.Date, &info.Time, &info.Price,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}

		// rows arrive ordered by station id
		if n := len(results); n == 0 || results[n-1].StationId != station.StationId {
			station.Prices = make(map[string]models.PriceInfo, len(models.FuelTypes))
			results = append(results, station)
		}
		results[len(results)-1].Prices[fuelType] = info
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating over rows")
	}

	return results, nil
}

// latestPricesQuery restricts the ranking to the requested stations so only
// their rows are scanned. No ids means every station.
func latestPricesQuery(stationIds []string) (string, []any) {
	if len(stationIds) == 0 {
		return latestPricesSQL, nil
	}

	placeholders := make([]string, len(stationIds))
	args := make([]any, len(stationIds))
	for i, stationId := range stationIds {
		placeholders[i] = "?"
		args[i] = stationId
	}
	filter := "WHERE p.stationid IN (" + strings.Join(placeholders, ", ") + ")"
	return strings.Replace(latestPricesSQL, stationFilterMarker, filter, 1), args
}

func (repo *sqliteRepository) Check() checks.Check {
	return sqliteCheck{db: repo.db}
}

func (repo *sqliteRepository) Close() error {
	return repo.db.Close()
}

// classify wraps err and marks SQLite constraint failures with ErrConstraintViolation.
func classify(err error, format string, args ...any) error {
	wrapped := errors.Wrapf(err, format, args...)

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return errors.Mark(wrapped, ErrConstraintViolation)
	}
	return wrapped
}

type sqliteCheck struct {
	db *sql.DB
}

func (c sqliteCheck) Pass() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.db.PingContext(ctx) == nil
}

func (c sqliteCheck) Name() string {
	return "sqlite"
}
