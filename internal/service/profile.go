package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/listenupapp/readup-server/internal/domain"
	domainerrors "github.com/listenupapp/readup-server/internal/errors"
	"github.com/listenupapp/readup-server/internal/normalize"
	"github.com/listenupapp/readup-server/internal/sse"
	"github.com/listenupapp/readup-server/internal/store"
	"github.com/listenupapp/readup-server/internal/store/sqlite"
	"github.com/listenupapp/readup-server/internal/validation"
)

// PublicProfile is what other users see of a profile.
type PublicProfile struct {
	ID        string             `json:"id"`
	Username  string             `json:"username"`
	Picture   string             `json:"picture,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	Totals    Totals             `json:"totals"`
	Favorites []*domain.UserBook `json:"favorites"`
}

type pictureInput struct {
	Picture string `json:"picture" validate:"required,http_url,max=512"`
}

// ProfileService manages the profiles of authenticated users.
type ProfileService struct {
	store     *sqlite.Store
	stats     *StatsService
	events    store.EventEmitter
	sorter    *normalize.Sorter
	validator *validation.Validator
	logger    *slog.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(
	store *sqlite.Store,
	stats *StatsService,
	events store.EventEmitter,
	sorter *normalize.Sorter,
	validator *validation.Validator,
	logger *slog.Logger,
) *ProfileService {
	return &ProfileService{
		store:     store,
		stats:     stats,
		events:    events,
		sorter:    sorter,
		validator: validator,
		logger:    logger,
	}
}

// Ensure creates the profile of an authenticated user on first sight and
// returns the stored profile.
func (s *ProfileService) Ensure(ctx context.Context, uid, email string, isAdmin bool) (*domain.Profile, error) {
	if err := requireUser(uid); err != nil {
		return nil, err
	}
	p, err := s.store.EnsureProfile(ctx, &domain.Profile{
		ID:      uid,
		Email:   strings.TrimSpace(email),
		IsAdmin: isAdmin,
	})
	if err != nil {
		return nil, fromStore(err, "profile")
	}
	return p, nil
}

// Me returns the profile of the authenticated user.
func (s *ProfileService) Me(ctx context.Context, uid string) (*domain.Profile, error) {
	if err := requireUser(uid); err != nil {
		return nil, err
	}
	p, err := s.store.GetProfile(ctx, uid)
	if err != nil {
		return nil, fromStore(err, "profile")
	}
	return p, nil
}

// GetProfileByEmail returns the public profile behind an email, with the
// owner's totals and favorites. Emails without "@" are NOT_FOUND.
func (s *ProfileService) GetProfileByEmail(ctx context.Context, email string) (*PublicProfile, error) {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return nil, domainerrors.NotFound("profile not found")
	}

	p, err := s.store.GetProfileByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("profile not found")
	}
	if err != nil {
		return nil, fromStore(err, "profile")
	}

	totals, err := s.stats.Totals(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	favorites, err := s.store.ListFavoriteUserBooks(ctx, p.ID, "")
	if err != nil {
		return nil, fromStore(err, "favorites")
	}
	s.sorter.UserBooks(favorites)

	return &PublicProfile{
		ID:        p.ID,
		Username:  s.Username(p),
		Picture:   p.Picture,
		CreatedAt: p.CreatedAt,
		Totals:    totals,
		Favorites: nonNil(favorites),
	}, nil
}

// UpdatePicture sets the picture URL of the authenticated user.
func (s *ProfileService) UpdatePicture(ctx context.Context, uid, url string) (*domain.Profile, error) {
	if err := requireUser(uid); err != nil {
		return nil, err
	}

	in := pictureInput{Picture: strings.TrimSpace(url)}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	if err := s.store.UpdateProfilePicture(ctx, uid, in.Picture); err != nil {
		return nil, fromStore(err, "profile")
	}

	p, err := s.store.GetProfile(ctx, uid)
	if err != nil {
		return nil, fromStore(err, "profile")
	}

	s.events.Emit(sse.NewProfileUpdatedEvent(p))
	s.logger.Info("profile picture updated", "user_id", uid)
	return p, nil
}

// Username is the display name derived from the profile email.
func (s *ProfileService) Username(p *domain.Profile) string {
	return p.Username()
}
