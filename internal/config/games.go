// internal/config/games.go
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Category struct {
	Name  string   `mapstructure:"name"`
	Games []string `mapstructure:"games"`
}

// Catalog lists the platforms and games offered by the /1v1 command.
type Catalog struct {
	Platforms  []string   `mapstructure:"platforms"`
	Categories []Category `mapstructure:"categories"`
}

func DefaultCatalog() *Catalog {
	return &Catalog{
		Platforms: []string{"PS5", "PC"},
		Categories: []Category{
			{Name: "Sports", Games: []string{"FIFA 23", "NBA 2K23", "Madden NFL 23"}},
			{Name: "Fighting", Games: []string{
				"Street Fighter 6",
				"Tekken 8",
				"Mortal Kombat 12",
				"Guilty Gear Strive",
				"DNF Duel",
				"Dragon Ball FighterZ",
			}},
			{Name: "Racing", Games: []string{
				"Forza Motorsport",
				"Gran Turismo 7",
				"Need for Speed Unbound",
				"F1 23",
				"Dirt 5",
			}},
		},
	}
}

// LoadCatalog reads games.yaml from dir, falling back to the built-in catalog
// when the file does not exist.
func LoadCatalog(dir string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigName("games")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultCatalog(), nil
		}
		return nil, errors.Wrap(err, "unable to read games catalog")
	}

	var catalog Catalog
	if err := v.Unmarshal(&catalog); err != nil {
		return nil, errors.Wrap(err, "unable to parse games catalog")
	}
	if len(catalog.Platforms) == 0 || len(catalog.Categories) == 0 {
		return nil, errors.New("games catalog needs at least one platform and one category")
	}
	return &catalog, nil
}

func (c *Catalog) CategoryNames() []string {
	names := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		names[i] = cat.Name
	}
	return names
}

// SearchGames returns up to limit games of category containing query, ignoring case.
// An unknown category searches every game.
func (c *Catalog) SearchGames(category, query string, limit int) []string {
	query = strings.ToLower(strings.TrimSpace(query))

	var found []string
	for _, cat := range c.Categories {
		if category != "" && c.hasCategory(category) && cat.Name != category {
			continue
		}
		for _, game := range cat.Games {
			if limit > 0 && len(found) >= limit {
				return found
			}
			if strings.Contains(strings.ToLower(game), query) {
				found = append(found, game)
			}
		}
	}
	return found
}

func (c *Catalog) hasCategory(name string) bool {
	for _, cat := range c.Categories {
		if cat.Name == name {
			return true
		}
	}
	return false
}
