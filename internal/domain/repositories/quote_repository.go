package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/database"
)

// Quote is one stored quote
type Quote struct {
	ID        int64
	GuildID   string
	Author    string
	Content   string
	CreatedAt time.Time
}

// QuoteRepository stores and serves guild quotes
type QuoteRepository struct {
	db *database.DB
}

// NewQuoteRepository creates a quote repository
func NewQuoteRepository(db *database.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

// Add stores a new quote and returns its ID
func (r *QuoteRepository) Add(ctx context.Context, guildID, author, content string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var id int64
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO quotes (guild_id, author, content)
		VALUES (NULLIF($1, ''), $2, $3)
		RETURNING id`, guildID, author, content).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to add quote: %w", err)
	}
	return id, nil
}

// Random returns one random quote for a guild
func (r *QuoteRepository) Random(ctx context.Context, guildID string) (*Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var q Quote
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, COALESCE(guild_id, ''), author, content, created_at
		FROM quotes
		WHERE guild_id = $1 OR guild_id IS NULL
		ORDER BY random()
		LIMIT 1`, guildID).Scan(&q.ID, &q.GuildID, &q.Author, &q.Content, &q.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load quote: %w", err)
	}
	return &q, nil
}
