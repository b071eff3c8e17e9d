// Package sources imports Q:/A: markdown cards into a deck, either from a
// local directory or from a git repository that is cloned or pulled first.
package sources

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/conorfennell/flashdeck/internal/deck"
	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/gitsource"
	"github.com/conorfennell/flashdeck/internal/knol"
	"github.com/conorfennell/flashdeck/internal/parser"
)

// Report summarizes one import.
type Report struct {
	Files      int
	Parsed     int
	Added      int
	Duplicates int
	Errors     []error
}

// IsGitURL reports whether source looks like a git remote rather than a path.
func IsGitURL(source string) bool {
	return strings.HasSuffix(source, ".git") ||
		strings.HasPrefix(source, "git@") ||
		strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "http://")
}

// Import dispatches to ImportGit or ImportDir depending on source.
func Import(store *deck.Store, deckID, source, reposDir string, progress io.Writer) (Report, error) {
	if IsGitURL(source) {
		return ImportGit(store, deckID, source, reposDir, progress)
	}
	return ImportDir(store, deckID, source)
}

// ImportGit syncs repoURL under reposDir and imports its markdown files.
func ImportGit(store *deck.Store, deckID, repoURL, reposDir string, progress io.Writer) (Report, error) {
	localPath, err := gitURLToLocalPath(reposDir, repoURL)
	if err != nil {
		return Report{}, err
	}
	if err := gitsource.Sync(repoURL, localPath, progress); err != nil {
		return Report{}, err
	}
	return ImportDir(store, deckID, localPath)
}

// ImportDir walks dir for .md files and adds every parsed card whose content
// is not already in the deck. Files that fail to parse and cards that fail
// validation are reported with their path and skipped; the remaining cards
// are still imported.
func ImportDir(store *deck.Store, deckID, dir string) (Report, error) {
	d, err := store.Deck(deckID)
	if err != nil {
		return Report{}, err
	}
	known := knol.SetOf(d.Cards)

	var report Report
	var fresh []domain.Card
	walkErr := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if entry.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(entry.Name()), ".md") {
			return nil
		}
		report.Files++
		cards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			report.Errors = append(report.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
			return nil
		}
		for _, c := range cards {
			report.Parsed++
			if err := deck.ValidateCard(c.Question, c.Answer); err != nil {
				report.Errors = append(report.Errors, fmt.Errorf("%s: %w", path, err))
				continue
			}
			if !known.Add(c) {
				report.Duplicates++
				continue
			}
			fresh = append(fresh, c)
		}
		return nil
	})
	if walkErr != nil {
		return report, fmt.Errorf("walking %s: %w", dir, walkErr)
	}

	added, err := store.ImportCards(deckID, fresh)
	if err != nil {
		return report, err
	}
	report.Added = added

	slog.Info("import complete",
		"path", dir,
		"deck_id", deckID,
		"files", report.Files,
		"parsed_cards", report.Parsed,
		"added", report.Added,
		"duplicates", report.Duplicates,
		"errors", len(report.Errors),
	)
	return report, nil
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		if err == nil && parsedURL.Scheme == "" {
			// Plain path to a local repository.
			name := strings.TrimSuffix(filepath.Base(repoURL), ".git")
			return filepath.Join(baseDir, "local", name), nil
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
