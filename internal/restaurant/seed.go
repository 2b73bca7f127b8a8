package restaurant

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// menuFile is the YAML shape of the menu seed file.
type menuFile struct {
	Categories []menuCategory `yaml:"categories"`
}

type menuCategory struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Items       []menuItem `yaml:"items"`
}

type menuItem struct {
	Name           string       `yaml:"name"`
	Description    string       `yaml:"description"`
	Price          float64      `yaml:"price"`
	YelpURL        string       `yaml:"yelp_url"`
	Configurations []menuOption `yaml:"configurations"`
	AddOns         []menuOption `yaml:"addons"`
}

type menuOption struct {
	Name  string  `yaml:"name"`
	Price float64 `yaml:"price"`
}

// SeedMenu loads the menu from a YAML file when the menu tables are
// empty. Re-running against a populated database is a no-op, so the
// file is safe to keep pointing at on every start.
func (s *Store) SeedMenu(ctx context.Context, path string) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM MenuCategories`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read menu file: %w", err)
	}
	var menu menuFile
	if err := yaml.Unmarshal(raw, &menu); err != nil {
		return fmt.Errorf("parse menu file: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	items := 0
	for _, cat := range menu.Categories {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO MenuCategories (CategoryName, Description) VALUES (?, ?)`,
			cat.Name, cat.Description)
		if err != nil {
			return fmt.Errorf("seed category %q: %w", cat.Name, err)
		}
		catID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		for _, item := range cat.Items {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO MenuItems (CategoryID, ItemName, Description, SellingPrice, YelpURL) VALUES (?, ?, ?, ?, ?)`,
				catID, item.Name, item.Description, item.Price, item.YelpURL)
			if err != nil {
				return fmt.Errorf("seed item %q: %w", item.Name, err)
			}
			itemID, err := res.LastInsertId()
			if err != nil {
				return err
			}
			for _, cfg := range item.Configurations {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO MenuConfigurations (ItemID, Configuration, Price) VALUES (?, ?, ?)`,
					itemID, cfg.Name, cfg.Price); err != nil {
					return fmt.Errorf("seed configuration %q: %w", cfg.Name, err)
				}
			}
			for _, addon := range item.AddOns {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO MenuAddOns (ItemID, AddOn, Price) VALUES (?, ?, ?)`,
					itemID, addon.Name, addon.Price); err != nil {
					return fmt.Errorf("seed add-on %q: %w", addon.Name, err)
				}
			}
			items++
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Info().
		Int("categories", len(menu.Categories)).
		Int("items", items).
		Str("path", path).
		Msg("Menu seeded")
	return nil
}
