// Package study composes the review scheduler and the progress ledger into
// the operations the API exposes.
package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medfocus/studycore/internal/domain"
	"github.com/medfocus/studycore/internal/fingerprint"
	"github.com/medfocus/studycore/internal/progress"
	"github.com/medfocus/studycore/internal/sm2"
)

// CardStore is the persistence port for decks and cards.
type CardStore interface {
	CreateDeck(ctx context.Context, deck domain.Deck) error
	LoadDeck(ctx context.Context, id string) (domain.Deck, error)
	DecksByUser(ctx context.Context, userID int64) ([]domain.Deck, error)
	InsertCard(ctx context.Context, card domain.Card) (domain.Card, bool, error)
	LoadCard(ctx context.Context, id string) (domain.Card, error)
	SaveCard(ctx context.Context, card domain.Card) error
	CardsByDeck(ctx context.Context, deckID string) ([]domain.Card, error)
}

// cardSaveAttempts bounds how often a review reloads and regrades a card
// that another review saved first.
const cardSaveAttempts = 10

type nower interface {
	Now() time.Time
}

// Service is safe for concurrent use.
type Service struct {
	cards     CardStore
	ledger    *progress.Ledger
	scheduler *sm2.Params
	loc       *time.Location
	logger    *slog.Logger

	Nower nower
}

func NewService(cards CardStore, ledger *progress.Ledger, scheduler *sm2.Params, loc *time.Location, logger *slog.Logger) *Service {
	if scheduler == nil {
		scheduler = sm2.DefaultParams()
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cards:     cards,
		ledger:    ledger,
		scheduler: scheduler,
		loc:       loc,
		logger:    logger,
		Nower:     progress.RealNower{},
	}
}

// ReviewResult is a graded card and the XP the review earned.
type ReviewResult struct {
	Card     domain.Card     `json:"card"`
	Progress progress.Result `json:"progress"`
}

// Review grades a card owned by userID, stores the new schedule and records
// a flashcard activity. A review racing another review of the same card is
// regraded from the winner's state, so every recorded flashcard activity
// has a matching review on the card.
func (s *Service) Review(ctx context.Context, userID int64, cardID string, quality int) (ReviewResult, error) {
	if err := sm2.ValidateGrade(quality); err != nil {
		return ReviewResult{}, err
	}

	now := s.Nower.Now()
	var graded domain.Card
	for attempt := 1; ; attempt++ {
		card, err := s.ownedCard(ctx, userID, cardID)
		if err != nil {
			return ReviewResult{}, err
		}
		graded, err = s.scheduler.Grade(card, quality, now)
		if err != nil {
			return ReviewResult{}, err
		}
		graded.Version = card.Version + 1

		err = s.cards.SaveCard(ctx, graded)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrConflict) && attempt < cardSaveAttempts {
			s.logger.Warn("card version conflict, retrying", "card_id", cardID, "attempt", attempt)
			continue
		}
		return ReviewResult{}, domain.Persistence("save card", err)
	}

	res, err := s.ledger.RecordActivity(ctx, progress.Activity{
		UserID:      userID,
		Kind:        domain.ActionFlashcard,
		Description: fmt.Sprintf("reviewed card %s (grade %d)", shortID(cardID), quality),
		Today:       domain.DateIn(now, s.loc),
	})
	if err != nil {
		return ReviewResult{}, err
	}

	s.logger.Info("card reviewed",
		"user_id", userID,
		"card_id", cardID,
		"quality", quality,
		"interval", graded.Interval,
		"ease_factor", graded.EaseFactor,
		"next_review", graded.NextReview,
	)
	return ReviewResult{Card: graded, Progress: res}, nil
}

// ResetCard returns a card owned by userID to the never-reviewed state.
func (s *Service) ResetCard(ctx context.Context, userID int64, cardID string) (domain.Card, error) {
	card, err := s.ownedCard(ctx, userID, cardID)
	if err != nil {
		return domain.Card{}, err
	}
	reset := sm2.Reset(card, s.Nower.Now())
	reset.Version = card.Version + 1
	if err := s.cards.SaveCard(ctx, reset); err != nil {
		return domain.Card{}, domain.Persistence("save card", err)
	}
	return reset, nil
}

// CreateDeck creates an empty deck for userID.
func (s *Service) CreateDeck(ctx context.Context, userID int64, name, subject string) (domain.Deck, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Deck{}, fmt.Errorf("%w: deck name is required", domain.ErrInvalidArgument)
	}
	deck := domain.Deck{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Subject:   strings.TrimSpace(subject),
		CreatedAt: s.Nower.Now().UTC(),
	}
	if err := s.cards.CreateDeck(ctx, deck); err != nil {
		return domain.Deck{}, domain.Persistence("create deck", err)
	}
	return deck, nil
}

// Decks lists the decks owned by userID.
func (s *Service) Decks(ctx context.Context, userID int64) ([]domain.Deck, error) {
	decks, err := s.cards.DecksByUser(ctx, userID)
	if err != nil {
		return nil, domain.Persistence("list decks", err)
	}
	return decks, nil
}

// AddCard adds a fresh card to a deck. Adding a card whose content is
// already in the deck returns the existing card and created=false.
func (s *Service) AddCard(ctx context.Context, userID int64, deckID, front, back string) (card domain.Card, created bool, err error) {
	if strings.TrimSpace(front) == "" || strings.TrimSpace(back) == "" {
		return domain.Card{}, false, fmt.Errorf("%w: card front and back are required", domain.ErrInvalidArgument)
	}
	if _, err := s.ownedDeck(ctx, userID, deckID); err != nil {
		return domain.Card{}, false, err
	}
	fresh := domain.NewCard(fingerprint.InDeck(deckID, front, back), deckID, front, back, s.Nower.Now().UTC())
	card, created, err = s.cards.InsertCard(ctx, fresh)
	if err != nil {
		return domain.Card{}, false, domain.Persistence("insert card", err)
	}
	return card, created, nil
}

// Due returns up to limit cards of a deck that are due now, oldest first.
// A non-positive limit returns all of them.
func (s *Service) Due(ctx context.Context, userID int64, deckID string, limit int) ([]domain.Card, error) {
	cards, err := s.deckCards(ctx, userID, deckID)
	if err != nil {
		return nil, err
	}
	due := sm2.Take(sm2.DueCards(cards, s.Nower.Now()), limit)
	if due == nil {
		due = []domain.Card{}
	}
	return due, nil
}

// Stats summarises a deck's review state.
func (s *Service) Stats(ctx context.Context, userID int64, deckID string) (sm2.DeckStats, error) {
	cards, err := s.deckCards(ctx, userID, deckID)
	if err != nil {
		return sm2.DeckStats{}, err
	}
	return s.scheduler.Stats(cards, s.Nower.Now(), s.loc), nil
}

func (s *Service) deckCards(ctx context.Context, userID int64, deckID string) ([]domain.Card, error) {
	if _, err := s.ownedDeck(ctx, userID, deckID); err != nil {
		return nil, err
	}
	cards, err := s.cards.CardsByDeck(ctx, deckID)
	if err != nil {
		return nil, domain.Persistence("list cards", err)
	}
	return cards, nil
}

// ownedDeck loads a deck and hides decks of other users behind ErrNotFound.
func (s *Service) ownedDeck(ctx context.Context, userID int64, deckID string) (domain.Deck, error) {
	deck, err := s.cards.LoadDeck(ctx, deckID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Deck{}, err
		}
		return domain.Deck{}, domain.Persistence("load deck", err)
	}
	if deck.UserID != userID {
		return domain.Deck{}, fmt.Errorf("deck %s: %w", deckID, domain.ErrNotFound)
	}
	return deck, nil
}

func (s *Service) ownedCard(ctx context.Context, userID int64, cardID string) (domain.Card, error) {
	card, err := s.cards.LoadCard(ctx, cardID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Card{}, err
		}
		return domain.Card{}, domain.Persistence("load card", err)
	}
	if _, err := s.ownedDeck(ctx, userID, card.DeckID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Card{}, fmt.Errorf("card %s: %w", cardID, domain.ErrNotFound)
		}
		return domain.Card{}, err
	}
	return card, nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
