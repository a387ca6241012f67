package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when no item matches the id (and owner, where scoped)
var ErrNotFound = errors.New("inventory item not found")

// Store persists inventory items. Writes are scoped by owner so that a
// handler bug cannot touch another user's rows.
type Store interface {
	ListByOwner(ctx context.Context, owner string) ([]*Item, error)
	Get(ctx context.Context, id string) (*Item, error)
	Create(ctx context.Context, item *Item) error
	// Update writes the named payload fields of item plus updated_at
	Update(ctx context.Context, item *Item, fields []string) error
	Delete(ctx context.Context, id, owner string) error
	Count(ctx context.Context) (int64, error)
	CountExpired(ctx context.Context, now time.Time) (int64, error)
}

// SQLStore implements Store on database/sql
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a SQL-backed inventory store
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const itemColumns = `id, user_id, name, nickname, chemical_name, brand, category, vessel,
	strength, unit_type, unit_size, container, script_name, quantity, remaining,
	doses_left, min_quantity, expiration_date, location, barcode, photos, notes,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		it                                    Item
		nickname, chemicalName, brand, vessel sql.NullString
		strength, unitType, unitSize          sql.NullString
		container, scriptName, remaining      sql.NullString
		barcode, notes                        sql.NullString
		dosesLeft                             sql.NullInt64
		expiration                            sql.NullTime
		category, location, photos            string
	)
	err := row.Scan(&it.ID, &it.UserID, &it.Name, &nickname, &chemicalName, &brand, &category,
		&vessel, &strength, &unitType, &unitSize, &container, &scriptName, &it.Quantity,
		&remaining, &dosesLeft, &it.MinQuantity, &expiration, &location, &barcode, &photos,
		&notes, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}

	it.Category = Category(category)
	it.Location = Location(location)
	it.Nickname = nullString(nickname)
	it.ChemicalName = nullString(chemicalName)
	it.Brand = nullString(brand)
	it.Vessel = nullString(vessel)
	it.Strength = nullString(strength)
	it.UnitType = nullString(unitType)
	it.UnitSize = nullString(unitSize)
	it.Container = nullString(container)
	it.ScriptName = nullString(scriptName)
	it.Remaining = nullString(remaining)
	it.Barcode = nullString(barcode)
	it.Notes = nullString(notes)
	if dosesLeft.Valid {
		n := int(dosesLeft.Int64)
		it.DosesLeft = &n
	}
	if expiration.Valid {
		t := expiration.Time.UTC()
		it.ExpirationDate = &t
	}
	it.CreatedAt = it.CreatedAt.UTC()
	it.UpdatedAt = it.UpdatedAt.UTC()

	if err := json.Unmarshal([]byte(photos), &it.Photos); err != nil {
		return nil, fmt.Errorf("failed to decode photos: %w", err)
	}
	if it.Photos == nil {
		it.Photos = []string{}
	}
	return &it, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func encodePhotos(photos []string) (string, error) {
	if photos == nil {
		photos = []string{}
	}
	b, err := json.Marshal(photos)
	if err != nil {
		return "", fmt.Errorf("failed to encode photos: %w", err)
	}
	return string(b), nil
}

// ListByOwner returns the owner's items, oldest first
func (s *SQLStore) ListByOwner(ctx context.Context, owner string) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM inventory_items WHERE user_id = $1 ORDER BY created_at, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := make([]*Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

// Get returns the item with the given id regardless of owner. Callers
// compare UserID before exposing it.
func (s *SQLStore) Get(ctx context.Context, id string) (*Item, error) {
	it, err := scanItem(s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM inventory_items WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return it, nil
}

// Create inserts a new item
func (s *SQLStore) Create(ctx context.Context, it *Item) error {
	photos, err := encodePhotos(it.Photos)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO inventory_items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24)
	`, it.ID, it.UserID, it.Name, it.Nickname, it.ChemicalName, it.Brand, string(it.Category),
		it.Vessel, it.Strength, it.UnitType, it.UnitSize, it.Container, it.ScriptName,
		it.Quantity, it.Remaining, it.DosesLeft, it.MinQuantity, it.ExpirationDate,
		string(it.Location), it.Barcode, photos, it.Notes, it.CreatedAt, it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

type column struct {
	name  string
	value func(it *Item) (interface{}, error)
}

func plain(name string, value func(it *Item) interface{}) column {
	return column{name: name, value: func(it *Item) (interface{}, error) { return value(it), nil }}
}

// editableColumns maps payload field names to their columns
var editableColumns = map[string]column{
	"name":           plain("name", func(it *Item) interface{} { return it.Name }),
	"nickname":       plain("nickname", func(it *Item) interface{} { return it.Nickname }),
	"chemicalName":   plain("chemical_name", func(it *Item) interface{} { return it.ChemicalName }),
	"brand":          plain("brand", func(it *Item) interface{} { return it.Brand }),
	"category":       plain("category", func(it *Item) interface{} { return string(it.Category) }),
	"vessel":         plain("vessel", func(it *Item) interface{} { return it.Vessel }),
	"strength":       plain("strength", func(it *Item) interface{} { return it.Strength }),
	"unitType":       plain("unit_type", func(it *Item) interface{} { return it.UnitType }),
	"unitSize":       plain("unit_size", func(it *Item) interface{} { return it.UnitSize }),
	"container":      plain("container", func(it *Item) interface{} { return it.Container }),
	"scriptName":     plain("script_name", func(it *Item) interface{} { return it.ScriptName }),
	"quantity":       plain("quantity", func(it *Item) interface{} { return it.Quantity }),
	"remaining":      plain("remaining", func(it *Item) interface{} { return it.Remaining }),
	"dosesLeft":      plain("doses_left", func(it *Item) interface{} { return it.DosesLeft }),
	"minQuantity":    plain("min_quantity", func(it *Item) interface{} { return it.MinQuantity }),
	"expirationDate": plain("expiration_date", func(it *Item) interface{} { return it.ExpirationDate }),
	"location":       plain("location", func(it *Item) interface{} { return string(it.Location) }),
	"barcode":        plain("barcode", func(it *Item) interface{} { return it.Barcode }),
	"photos": {name: "photos", value: func(it *Item) (interface{}, error) {
		return encodePhotos(it.Photos)
	}},
	"notes": plain("notes", func(it *Item) interface{} { return it.Notes }),
}

// Update sets only the columns behind fields, so concurrent updates of
// different fields do not overwrite each other. Unknown field names are
// skipped. The statement matches both id and owner; no match yields
// ErrNotFound.
func (s *SQLStore) Update(ctx context.Context, it *Item, fields []string) error {
	sets := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+3)
	for _, field := range fields {
		col, ok := editableColumns[field]
		if !ok {
			continue
		}
		v, err := col.value(it)
		if err != nil {
			return err
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col.name, len(args)))
	}
	args = append(args, it.UpdatedAt)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, it.ID, it.UserID)

	query := fmt.Sprintf(`UPDATE inventory_items SET %s WHERE id = $%d AND user_id = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return expectOneRow(res)
}

// Delete removes the item when it belongs to owner
func (s *SQLStore) Delete(ctx context.Context, id, owner string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM inventory_items WHERE id = $1 AND user_id = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return expectOneRow(res)
}

// Count returns the number of items across all owners
func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return n, nil
}

// CountExpired returns the number of items whose expiration date is before now
func (s *SQLStore) CountExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM inventory_items WHERE expiration_date IS NOT NULL AND expiration_date < $1`,
		now.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count expired items: %w", err)
	}
	return n, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
