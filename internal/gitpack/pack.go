package gitpack

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/guessthat/cardcache/internal/domain"
)

var validate = validator.New()

// packCard is the on-disk shape of a card inside a pack file. The id is
// optional: cards authored by hand in a pack get a locally generated one.
type packCard struct {
	ID         string   `json:"id"`
	Language   string   `json:"language" validate:"required"`
	Category   string   `json:"category" validate:"required"`
	Difficulty string   `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Target     string   `json:"target" validate:"required"`
	Forbidden  []string `json:"forbidden" validate:"required,min=1,dive,required"`
}

// Parse reads one pack file: a JSON array of cards. Every card is
// validated; a single bad card fails the whole file so a broken pack
// never half-imports.
func Parse(r io.Reader) ([]domain.Card, error) {
	var raw []packCard
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode pack: %w", err)
	}

	cards := make([]domain.Card, 0, len(raw))
	for i, pc := range raw {
		if err := validate.Struct(pc); err != nil {
			return nil, fmt.Errorf("invalid card at index %d (%q): %w", i, pc.Target, err)
		}
		id := pc.ID
		if id == "" {
			id = uuid.NewString()
		}
		cards = append(cards, domain.Card{
			ID:         id,
			Language:   pc.Language,
			Category:   pc.Category,
			Difficulty: domain.Difficulty(pc.Difficulty),
			Target:     pc.Target,
			Forbidden:  pc.Forbidden,
		})
	}
	return cards, nil
}

// ParseFile reads a pack file from disk.
func ParseFile(path string) ([]domain.Card, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f)
}

// LoadDir walks dir for .json pack files and parses them all. Per-file
// failures are collected rather than aborting the walk, so one broken
// pack does not block the rest of the repository.
func LoadDir(dir string) ([]domain.Card, []error) {
	var cards []domain.Card
	var errs []error

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".json") {
			return nil
		}
		fileCards, parseErr := ParseFile(path)
		if parseErr != nil {
			errs = append(errs, fmt.Errorf("parsing %s: %w", path, parseErr))
			return nil
		}
		cards = append(cards, fileCards...)
		return nil
	})
	if walkErr != nil {
		errs = append(errs, fmt.Errorf("walking %s: %w", dir, walkErr))
	}
	return cards, errs
}
