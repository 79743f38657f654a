package catalog

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/sillage/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var ErrProductNotFound = errors.New("product not found")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Repository is the local catalog mirror used to resolve add-to-cart requests.
type Repository struct {
	db     *sql.DB
	driver string
}

type RepoInterface interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	UpsertProduct(ctx context.Context, p *domain.Product) error
}

func NewRepository(driver, dsn string) (*Repository, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported catalog driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == DriverSQLite {
		// one writer; foreign keys are off by default in sqlite
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}
	return &Repository{db: db, driver: driver}, nil
}

func (r *Repository) RunMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	var driver database.Driver
	switch r.driver {
	case DriverPostgres:
		driver, err = postgres.WithInstance(r.db, &postgres.Config{})
	default:
		driver, err = sqlite.WithInstance(r.db, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, r.driver, driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (r *Repository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT id, name, brand, description, gender, season, featured,
		       category_id, category_name, images
		FROM products
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	sizes, err := r.sizes(ctx, `WHERE product_id = $1`, id)
	if err != nil {
		return nil, err
	}
	p.Sizes = sizes[p.ID]
	p.PriceRange = p.ComputePriceRange()
	return p, nil
}

func (r *Repository) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	query := `
		SELECT id, name, brand, description, gender, season, featured,
		       category_id, category_name, images
		FROM products
		ORDER BY featured DESC, name, id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	sizes, err := r.sizes(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		p.Sizes = sizes[p.ID]
		p.PriceRange = p.ComputePriceRange()
	}
	return products, nil
}

func (r *Repository) sizes(ctx context.Context, where string, args ...any) (map[string][]domain.Size, error) {
	query := `
		SELECT product_id, id, size, unit, price, stock, is_available
		FROM product_sizes ` + where + `
		ORDER BY product_id, position
	`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sizes: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Size)
	for rows.Next() {
		var (
			productID string
			s         domain.Size
		)
		if err := rows.Scan(&productID, &s.ID, &s.Size, &s.Unit, &s.Price, &s.Stock, &s.IsAvailable); err != nil {
			return nil, fmt.Errorf("failed to scan size: %w", err)
		}
		out[productID] = append(out[productID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p                    domain.Product
		categoryID, category string
		images               string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.Description, &p.Gender, &p.Season,
		&p.Featured, &categoryID, &category, &images)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	if categoryID != "" || category != "" {
		p.Category = &domain.Category{ID: categoryID, Name: category}
	}
	if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
		return nil, fmt.Errorf("decode images of %s: %w", p.ID, err)
	}
	return &p, nil
}

// UpsertProduct inserts or replaces a product together with all its sizes.
func (r *Repository) UpsertProduct(ctx context.Context, p *domain.Product) error {
	images, err := json.Marshal(nonNilImages(p.Images))
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}
	var categoryID, category string
	if p.Category != nil {
		categoryID, category = p.Category.ID, p.Category.Name
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (id, name, brand, description, gender, season, featured,
		                      category_id, category_name, images, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			brand = excluded.brand,
			description = excluded.description,
			gender = excluded.gender,
			season = excluded.season,
			featured = excluded.featured,
			category_id = excluded.category_id,
			category_name = excluded.category_name,
			images = excluded.images,
			updated_at = excluded.updated_at
	`, p.ID, p.Name, p.Brand, p.Description, p.Gender, p.Season, p.Featured,
		categoryID, category, string(images), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert product %s: %w", p.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM product_sizes WHERE product_id = $1`, p.ID); err != nil {
		return fmt.Errorf("clear sizes of %s: %w", p.ID, err)
	}
	for i, s := range p.Sizes {
		unit := s.Unit
		if unit == "" {
			unit = domain.DefaultUnit
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO product_sizes (product_id, id, position, size, unit, price, stock, is_available)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, p.ID, s.ID, i, s.Size, unit, s.Price.String(), s.Stock, s.IsAvailable)
		if err != nil {
			return fmt.Errorf("insert size %s of %s: %w", s.ID, p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit product %s: %w", p.ID, err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func nonNilImages(images []domain.Image) []domain.Image {
	if images == nil {
		return []domain.Image{}
	}
	return images
}

var _ RepoInterface = (*Repository)(nil)
