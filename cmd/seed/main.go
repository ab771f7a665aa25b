// Package main seeds a ReadUp database with a small catalog and a reading
// history for one user, then prints a bearer token for that user.
//
// Run it while the server is stopped; the search index is single-writer.
//
// Usage:
//
//	go run ./cmd/seed --data-path ~/ReadUp/data --email jane.doe@example.com
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/listenupapp/readup-server/internal/auth"
	"github.com/listenupapp/readup-server/internal/domain"
	"github.com/listenupapp/readup-server/internal/normalize"
	"github.com/listenupapp/readup-server/internal/search"
	"github.com/listenupapp/readup-server/internal/service"
	"github.com/listenupapp/readup-server/internal/store"
	"github.com/listenupapp/readup-server/internal/store/sqlite"
	"github.com/listenupapp/readup-server/internal/validation"
	"github.com/listenupapp/readup-server/internal/viewcache"
)

var (
	dataPath = flag.String("data-path", "", "Server data directory (default: ~/ReadUp/data)")
	userID   = flag.String("user", "seed-user", "User ID to seed")
	email    = flag.String("email", "reader@example.com", "Email of the seeded user")
	admin    = flag.Bool("admin", true, "Mark the seeded user as administrator")
	verbose  = flag.Bool("v", false, "Log service activity")
)

type seedBook struct {
	title   string
	authors []string
	pages   int
	kind    domain.BookType
	state   domain.State
}

var catalog = []seedBook{
	{"Dune", []string{"Frank Herbert"}, 412, domain.BookTypeRoman, domain.StateRead},
	{"Le Petit Prince", []string{"Antoine de Saint-Exupéry"}, 96, domain.BookTypeRoman, domain.StateRead},
	{"L'Étranger", []string{"Albert Camus"}, 184, domain.BookTypeRoman, domain.StateReading},
	{"Astérix le Gaulois", []string{"René Goscinny", "Albert Uderzo"}, 48, domain.BookTypeBD, domain.StateRead},
	{"Tintin au Tibet", []string{"Hergé"}, 62, domain.BookTypeBD, domain.StateLater},
	{"One Piece, Tome 1", []string{"Eiichiro Oda"}, 208, domain.BookTypeManga, domain.StateReading},
	{"Akira, Tome 1", []string{"Katsuhiro Otomo"}, 364, domain.BookTypeManga, domain.StateWishlist},
	{"Les Misérables", []string{"Victor Hugo"}, 1488, domain.BookTypeRoman, domain.StateWishlist},
}

func main() {
	flag.Parse()

	base := *dataPath
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to resolve home directory: %v", err)
		}
		base = filepath.Join(home, "ReadUp", "data")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	dbPath := filepath.Join(base, "readup.db")
	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := sqlite.Open(dbPath, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	index, err := search.NewSearchIndex(search.Options{DataPath: filepath.Join(base, "search"), Logger: logger})
	if err != nil {
		log.Fatalf("Failed to open search index (is the server running?): %v", err)
	}
	defer index.Close()
	s.SetSearchIndexer(index)

	key, err := auth.LoadOrGenerateKey(base)
	if err != nil {
		log.Fatalf("Failed to load auth key: %v", err)
	}
	tokens, err := auth.NewTokenService(key, 30*24*time.Hour)
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}

	events := store.NewNoopEmitter()
	views := viewcache.Disabled{}
	sorter := normalize.NewSorter("fr")
	validator := validation.New()

	stats := service.NewStatsService(s, views, logger)
	profiles := service.NewProfileService(s, stats, events, sorter, validator, logger)
	books := service.NewBookService(s, nil, nil, events, sorter, validator, logger)
	shelves := service.NewShelfService(s, events, views, sorter, logger)
	favorites := service.NewFavoriteService(s, events, views, logger)
	sessions := service.NewReadingSessionService(s, events, views, validator, logger)

	ctx := context.Background()

	profile, err := profiles.Ensure(ctx, *userID, *email, *admin)
	if err != nil {
		log.Fatalf("Failed to create profile: %v", err)
	}
	fmt.Printf("Seeding data for %s (%s)\n", profile.Username(), profile.ID)

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 42))
	now := time.Now().UTC()

	var favoriteCount int
	for _, sb := range catalog {
		book, err := books.CreateBook(ctx, profile.ID, true, service.CreateBookInput{
			Title:   sb.title,
			Authors: sb.authors,
			Pages:   sb.pages,
			Type:    string(sb.kind),
		})
		if err != nil {
			log.Printf("Failed to create %q: %v", sb.title, err)
			continue
		}

		started := now.AddDate(0, 0, -rng.IntN(300)-60)
		shelf := sb.state
		if shelf == domain.StateRead {
			shelf = domain.StateReading
		}
		if err := moveThrough(ctx, shelves, profile.ID, book.ID, shelf, started); err != nil {
			log.Printf("Failed to shelve %q: %v", sb.title, err)
			continue
		}

		if shelf != domain.StateReading {
			fmt.Printf("  %-24s %s\n", sb.title, sb.state)
			continue
		}

		finished := sb.state == domain.StateRead
		n, last, err := logSessions(ctx, sessions, rng, profile.ID, book, started, finished)
		if err != nil {
			log.Printf("Failed to log sessions for %q: %v", sb.title, err)
		}
		if finished {
			if _, err := shelves.SetState(ctx, profile.ID, book.ID, domain.StateRead.Ptr(), &last); err != nil {
				log.Printf("Failed to finish %q: %v", sb.title, err)
			}
		}
		fmt.Printf("  %-24s %-8s %d sessions\n", sb.title, sb.state, n)

		if sb.state == domain.StateRead && favoriteCount < 2 {
			if _, err := favorites.ToggleFavorite(ctx, profile.ID, book.ID, false); err != nil {
				log.Printf("Failed to favorite %q: %v", sb.title, err)
			} else {
				favoriteCount++
			}
		}
	}

	token, err := tokens.Mint(profile)
	if err != nil {
		log.Fatalf("Failed to mint token: %v", err)
	}

	fmt.Println("\nSeed completed!")
	fmt.Printf("Bearer token (valid 30 days):\n%s\n", token)
}

// moveThrough walks a book along the natural shelf order up to target so the
// history dates are populated the way a real user would produce them.
func moveThrough(ctx context.Context, shelves *service.ShelfService, uid string, bookID int64, target domain.State, started time.Time) error {
	var path []domain.State
	switch target {
	case domain.StateWishlist, domain.StateLater:
		path = []domain.State{target}
	case domain.StateReading:
		path = []domain.State{domain.StateWishlist, domain.StateReading}
	}

	at := started
	for _, st := range path {
		captured := at
		if _, err := shelves.SetState(ctx, uid, bookID, st.Ptr(), &captured); err != nil {
			return err
		}
		at = at.AddDate(0, 0, 7)
	}
	return nil
}

// logSessions spreads sessions across the weeks after started and returns
// when the last one ended. Finished books get sessions covering every page.
func logSessions(ctx context.Context, sessions *service.ReadingSessionService, rng *rand.Rand, uid string, book *domain.Book, started time.Time, finished bool) (int, time.Time, error) {
	pages := book.Pages
	if !finished {
		pages = pages / 2
	}

	count := 0
	page := 0
	day := started.AddDate(0, 0, 7)
	last := day
	for page < pages {
		read := min(pages-page, 10+rng.IntN(40))
		start := time.Date(day.Year(), day.Month(), day.Day(), 18+rng.IntN(4), rng.IntN(60), 0, 0, time.UTC)
		minutes := read*2 + rng.IntN(15)

		_, err := sessions.LogSession(ctx, uid, service.LogSessionInput{
			BookID:    book.ID,
			StartTime: start,
			EndTime:   start.Add(time.Duration(minutes) * time.Minute),
			StartPage: page,
			EndPage:   page + read,
		})
		if err != nil {
			return count, last, err
		}

		count++
		last = start.Add(time.Duration(minutes) * time.Minute)
		page += read
		day = day.AddDate(0, 0, 1+rng.IntN(3))
	}
	return count, last, nil
}
