package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/database"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/entities"
	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/valueobjects"
)

// TrackRepository serves the curated music library stored in PostgreSQL
type TrackRepository struct {
	db         *database.DB
	webAPIBase string
}

// NewTrackRepository creates a library repository. webAPIBase is the public
// base URL files are served from.
func NewTrackRepository(db *database.DB, webAPIBase string) *TrackRepository {
	return &TrackRepository{
		db:         db,
		webAPIBase: strings.TrimRight(webAPIBase, "/"),
	}
}

// SearchByTitle finds library tracks with trigram-similar titles or artists,
// best match first
func (r *TrackRepository) SearchByTitle(ctx context.Context, query, requestedBy, guildID string, limit int) ([]*entities.Track, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = 5
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, title, COALESCE(artist, ''), file_path, duration_ms,
		       GREATEST(similarity(title, $1), similarity(COALESCE(artist, ''), $1)) AS score
		FROM tracks
		WHERE title % $1 OR COALESCE(artist, '') % $1
		ORDER BY score DESC
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*entities.Track
	for rows.Next() {
		var (
			id         int64
			title      string
			artist     string
			filePath   string
			durationMS int64
			score      float64
		)
		if err := rows.Scan(&id, &title, &artist, &filePath, &durationMS, &score); err != nil {
			return nil, fmt.Errorf("failed to scan track row: %w", err)
		}

		tracks = append(tracks, entities.NewTrack(title, artist, r.fileURL(filePath), durationMS,
			valueobjects.NewDatabaseMetadata(id, score, filePath),
			requestedBy, guildID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read track rows: %w", err)
	}
	return tracks, nil
}

// GetByID loads one library track
func (r *TrackRepository) GetByID(ctx context.Context, id int64, requestedBy, guildID string) (*entities.Track, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var (
		title      string
		artist     string
		filePath   string
		durationMS int64
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT title, COALESCE(artist, ''), file_path, duration_ms
		FROM tracks WHERE id = $1`, id).Scan(&title, &artist, &filePath, &durationMS)
	if err != nil {
		return nil, fmt.Errorf("failed to load track %d: %w", id, err)
	}

	return entities.NewTrack(title, artist, r.fileURL(filePath), durationMS,
		valueobjects.NewDatabaseMetadata(id, 1, filePath),
		requestedBy, guildID), nil
}

// fileURL maps a library file path onto the public file server
func (r *TrackRepository) fileURL(filePath string) string {
	if r.webAPIBase == "" {
		return filePath
	}
	return r.webAPIBase + "/" + strings.TrimLeft(filePath, "/")
}
