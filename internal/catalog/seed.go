package catalog

import (
	"context"
	"fmt"
	"io"

	"github.com/fjod/sillage/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout accepted by `storefront catalog seed`.
type SeedFile struct {
	Products []SeedProduct `yaml:"products"`
}

type SeedProduct struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Brand       string     `yaml:"brand"`
	Description string     `yaml:"description"`
	Gender      string     `yaml:"gender"`
	Season      string     `yaml:"season"`
	Featured    bool       `yaml:"featured"`
	Category    *SeedRef   `yaml:"category"`
	Images      []string   `yaml:"images"`
	Sizes       []SeedSize `yaml:"sizes"`
}

type SeedRef struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type SeedSize struct {
	ID        string `yaml:"id"`
	Size      string `yaml:"size"`
	Unit      string `yaml:"unit"`
	Price     string `yaml:"price"`
	Stock     int    `yaml:"stock"`
	Available *bool  `yaml:"available"`
}

func ParseSeed(r io.Reader) ([]*domain.Product, error) {
	var file SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	products := make([]*domain.Product, 0, len(file.Products))
	seen := make(map[string]struct{}, len(file.Products))
	for i, sp := range file.Products {
		if sp.ID == "" || sp.Name == "" {
			return nil, fmt.Errorf("seed product #%d: id and name are required", i+1)
		}
		if _, dup := seen[sp.ID]; dup {
			return nil, fmt.Errorf("seed product %s: duplicate id", sp.ID)
		}
		seen[sp.ID] = struct{}{}

		p, err := sp.toProduct()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (sp SeedProduct) toProduct() (*domain.Product, error) {
	p := &domain.Product{
		ID:          sp.ID,
		Name:        sp.Name,
		Brand:       sp.Brand,
		Description: sp.Description,
		Gender:      sp.Gender,
		Season:      sp.Season,
		Featured:    sp.Featured,
	}
	if sp.Category != nil {
		p.Category = &domain.Category{ID: sp.Category.ID, Name: sp.Category.Name}
	}
	for _, u := range sp.Images {
		p.Images = append(p.Images, domain.Image{URL: u})
	}

	sizeIDs := make(map[string]struct{}, len(sp.Sizes))
	for _, ss := range sp.Sizes {
		if ss.ID == "" {
			return nil, fmt.Errorf("seed product %s: size without id", sp.ID)
		}
		if _, dup := sizeIDs[ss.ID]; dup {
			return nil, fmt.Errorf("seed product %s: duplicate size %s", sp.ID, ss.ID)
		}
		sizeIDs[ss.ID] = struct{}{}

		price, err := decimal.NewFromString(ss.Price)
		if err != nil {
			return nil, fmt.Errorf("seed product %s size %s: invalid price %q: %w", sp.ID, ss.ID, ss.Price, err)
		}
		if price.IsNegative() || ss.Stock < 0 {
			return nil, fmt.Errorf("seed product %s size %s: price and stock must not be negative", sp.ID, ss.ID)
		}
		available := true
		if ss.Available != nil {
			available = *ss.Available
		}
		unit := ss.Unit
		if unit == "" {
			unit = domain.DefaultUnit
		}
		p.Sizes = append(p.Sizes, domain.Size{
			ID:          ss.ID,
			Size:        ss.Size,
			Unit:        unit,
			Price:       price,
			Stock:       ss.Stock,
			IsAvailable: available,
		})
	}
	p.PriceRange = p.ComputePriceRange()
	return p, nil
}

// Seed upserts every product. It stops at the first failure.
func Seed(ctx context.Context, repo RepoInterface, products []*domain.Product) (int, error) {
	for i, p := range products {
		if err := repo.UpsertProduct(ctx, p); err != nil {
			return i, err
		}
	}
	return len(products), nil
}
