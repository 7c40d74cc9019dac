package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/ports"
	_ "modernc.org/sqlite" // Pure Go driver
)

// Config defines SQLite operational parameters.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 1,
	}
}

// Open initializes a SQLite connection pool with WAL mode and a busy timeout.
// Use ":memory:" as the path for a throwaway database.
func Open(dbPath string, cfg Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=foreign_keys(ON)",
		dbPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return db, nil
}

// Registrar is a ports.PropertyRegistrar backed by SQLite.
//
// The registration number is the row id of the registration.
type Registrar struct {
	db *sql.DB
}

// Ensure Registrar implements PropertyRegistrar.
var _ ports.PropertyRegistrar = (*Registrar)(nil)

// NewRegistrar initializes the required schema in the given database and
// returns a new Registrar.
func NewRegistrar(db *sql.DB) (*Registrar, error) {
	r := &Registrar{db: db}
	if err := r.initSchema(); err != nil {
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}
	return r, nil
}

func (r *Registrar) initSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS property_registrations (
			registration_number INTEGER PRIMARY KEY AUTOINCREMENT,
			uprn INTEGER UNIQUE,
			single_line_address TEXT NOT NULL,
			postcode TEXT NOT NULL,
			local_authority_id INTEGER,
			property_type TEXT NOT NULL,
			custom_property_type TEXT,
			ownership_type TEXT NOT NULL,
			licensing_type TEXT NOT NULL,
			licence_number TEXT,
			num_households INTEGER NOT NULL,
			num_tenants INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		);`,
	)
	return err
}

// Register stores the registration. An address with a UPRN can only be registered once.
func (r *Registrar) Register(ctx context.Context, reg domain.PropertyRegistration) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if reg.Address.UPRN != nil {
		registered, err := isRegistered(ctx, tx, *reg.Address.UPRN)
		if err != nil {
			return 0, err
		}
		if registered {
			return 0, fmt.Errorf("uprn %d: %w", *reg.Address.UPRN, domain.ErrAlreadyRegistered)
		}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO property_registrations (
			uprn, single_line_address, postcode, local_authority_id,
			property_type, custom_property_type, ownership_type,
			licensing_type, licence_number, num_households, num_tenants, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullInt64(reg.Address.UPRN),
		reg.Address.SingleLineAddress,
		reg.Address.Postcode,
		nullInt(reg.Address.LocalAuthorityID),
		reg.PropertyType,
		reg.CustomPropertyType,
		reg.OwnershipType,
		reg.LicensingType,
		reg.LicenceNumber,
		reg.NumberOfHouseholds,
		reg.NumberOfPeople,
		time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert registration: %w", domain.ErrAlreadyRegistered)
		}
		return 0, fmt.Errorf("insert registration: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// IsRegistered reports whether a registration exists for the UPRN.
func (r *Registrar) IsRegistered(ctx context.Context, uprn int64) (bool, error) {
	return isRegistered(ctx, r.db, uprn)
}

// Get loads a registration by its number.
func (r *Registrar) Get(ctx context.Context, registrationNumber int64) (*domain.PropertyRegistration, error) {
	var (
		reg       domain.PropertyRegistration
		uprn      sql.NullInt64
		authority sql.NullInt64
		custom    sql.NullString
		licence   sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT uprn, single_line_address, postcode, local_authority_id,
			property_type, custom_property_type, ownership_type,
			licensing_type, licence_number, num_households, num_tenants
		FROM property_registrations WHERE registration_number = ?`,
		registrationNumber,
	).Scan(
		&uprn, &reg.Address.SingleLineAddress, &reg.Address.Postcode, &authority,
		&reg.PropertyType, &custom, &reg.OwnershipType,
		&reg.LicensingType, &licence, &reg.NumberOfHouseholds, &reg.NumberOfPeople,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("registration %d not found", registrationNumber)
	}
	if err != nil {
		return nil, err
	}

	if uprn.Valid {
		reg.Address.UPRN = &uprn.Int64
	}
	if authority.Valid {
		id := int(authority.Int64)
		reg.Address.LocalAuthorityID = &id
	}
	reg.CustomPropertyType = custom.String
	reg.LicenceNumber = licence.String
	reg.Occupied = reg.NumberOfPeople > 0
	return &reg, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func isRegistered(ctx context.Context, q queryer, uprn int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM property_registrations WHERE uprn = ?`, uprn,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
