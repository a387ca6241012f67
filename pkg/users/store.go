package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when no user or settings row exists for the id
var ErrNotFound = errors.New("user not found")

// Store persists users and their settings
type Store interface {
	Get(ctx context.Context, id string) (*User, error)
	// CreateIfAbsent inserts the user and settings atomically. An existing
	// user is left untouched and reported as created == false.
	CreateIfAbsent(ctx context.Context, user *User, settings *Settings) (created bool, err error)
	GetSettings(ctx context.Context, userID string) (*Settings, error)
	// UpdateSettings writes the named payload fields of settings plus updated_at
	UpdateSettings(ctx context.Context, settings *Settings, fields []string) error
	Count(ctx context.Context) (int64, error)
}

// SQLStore implements Store on database/sql. Queries use $N placeholders and
// run unchanged on Postgres and SQLite.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a SQL-backed user store
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Get returns the user with the given id
func (s *SQLStore) Get(ctx context.Context, id string) (*User, error) {
	user := &User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// CreateIfAbsent inserts the user and its settings in one transaction
func (s *SQLStore) CreateIfAbsent(ctx context.Context, user *User, settings *Settings) (bool, error) {
	days, err := json.Marshal(settings.ExpirationWarningDays)
	if err != nil {
		return false, fmt.Errorf("failed to encode warning days: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, email, first_name, last_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, user.ID, user.Email, user.FirstName, user.LastName, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert user: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	if inserted == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, low_stock_threshold, expiration_warning_days, theme,
			user_role, subscription_tier, vessel_id, vessel_name, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO NOTHING
	`, user.ID, settings.LowStockThreshold, string(days), string(settings.Theme),
		string(settings.UserRole), string(settings.SubscriptionTier),
		settings.VesselID, settings.VesselName, settings.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// GetSettings returns the settings of a user
func (s *SQLStore) GetSettings(ctx context.Context, userID string) (*Settings, error) {
	settings := &Settings{UserID: userID}
	var (
		days                 string
		theme, role, tier    string
		vesselID, vesselName sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT low_stock_threshold, expiration_warning_days, theme, user_role,
			subscription_tier, vessel_id, vessel_name, updated_at
		FROM user_settings WHERE user_id = $1
	`, userID).Scan(&settings.LowStockThreshold, &days, &theme, &role, &tier,
		&vesselID, &vesselName, &settings.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	if err := json.Unmarshal([]byte(days), &settings.ExpirationWarningDays); err != nil {
		return nil, fmt.Errorf("failed to decode warning days: %w", err)
	}
	settings.Theme = Theme(theme)
	settings.UserRole = Role(role)
	settings.SubscriptionTier = Tier(tier)
	if vesselID.Valid {
		settings.VesselID = &vesselID.String
	}
	if vesselName.Valid {
		settings.VesselName = &vesselName.String
	}
	return settings, nil
}

// settingsColumns maps payload field names to their columns
var settingsColumns = map[string]struct {
	name  string
	value func(s *Settings) (interface{}, error)
}{
	"vesselId":          {"vessel_id", func(s *Settings) (interface{}, error) { return s.VesselID, nil }},
	"vesselName":        {"vessel_name", func(s *Settings) (interface{}, error) { return s.VesselName, nil }},
	"lowStockThreshold": {"low_stock_threshold", func(s *Settings) (interface{}, error) { return s.LowStockThreshold, nil }},
	"expirationWarningDays": {"expiration_warning_days", func(s *Settings) (interface{}, error) {
		days, err := json.Marshal(s.ExpirationWarningDays)
		if err != nil {
			return nil, fmt.Errorf("failed to encode warning days: %w", err)
		}
		return string(days), nil
	}},
	"theme":            {"theme", func(s *Settings) (interface{}, error) { return string(s.Theme), nil }},
	"userRole":         {"user_role", func(s *Settings) (interface{}, error) { return string(s.UserRole), nil }},
	"subscriptionTier": {"subscription_tier", func(s *Settings) (interface{}, error) { return string(s.SubscriptionTier), nil }},
}

// UpdateSettings sets only the columns behind fields for settings.UserID.
// Unknown field names are skipped.
func (s *SQLStore) UpdateSettings(ctx context.Context, settings *Settings, fields []string) error {
	settings.UpdatedAt = time.Now().UTC()

	sets := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+2)
	for _, field := range fields {
		col, ok := settingsColumns[field]
		if !ok {
			continue
		}
		v, err := col.value(settings)
		if err != nil {
			return err
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col.name, len(args)))
	}
	args = append(args, settings.UpdatedAt)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, settings.UserID)

	query := fmt.Sprintf(`UPDATE user_settings SET %s WHERE user_id = $%d`, strings.Join(sets, ", "), len(args))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of provisioned users
func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
