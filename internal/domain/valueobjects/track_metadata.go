package valueobjects

import "fmt"

// DurationInfinite is the formatted duration of unbounded live streams
const DurationInfinite = "infinite"

// MetadataKind discriminates track metadata provenance
type MetadataKind string

const (
	MetadataKindGeneric  MetadataKind = "generic"
	MetadataKindDatabase MetadataKind = "database"
)

// TrackMetadata is a tagged union: exactly one of the provenance branches is
// set, matching Kind. Resolved once at normalization time, never re-checked
// with type switches at read sites.
type TrackMetadata struct {
	Kind     MetadataKind      `json:"kind"`
	Generic  *GenericMetadata  `json:"generic,omitempty"`
	Database *DatabaseMetadata `json:"database,omitempty"`
}

// GenericMetadata describes a track that came out of an extractor or a
// downloaded file.
type GenericMetadata struct {
	Extractor string `json:"extractor,omitempty"` // e.g. "search", "fallback", "file"
	SourceURL string `json:"source_url,omitempty"`
	LocalPath string `json:"local_path,omitempty"`
}

// DatabaseMetadata describes a track backed by a scored database record.
type DatabaseMetadata struct {
	RecordID int64   `json:"record_id"`
	Score    float64 `json:"score"`
	FilePath string  `json:"file_path,omitempty"`
}

// NewGenericMetadata builds a generic-kind metadata value
func NewGenericMetadata(extractor, sourceURL, localPath string) TrackMetadata {
	return TrackMetadata{
		Kind: MetadataKindGeneric,
		Generic: &GenericMetadata{
			Extractor: extractor,
			SourceURL: sourceURL,
			LocalPath: localPath,
		},
	}
}

// NewDatabaseMetadata builds a database-kind metadata value
func NewDatabaseMetadata(recordID int64, score float64, filePath string) TrackMetadata {
	return TrackMetadata{
		Kind: MetadataKindDatabase,
		Database: &DatabaseMetadata{
			RecordID: recordID,
			Score:    score,
			FilePath: filePath,
		},
	}
}

// IsValid checks the union invariant: the branch matching Kind is set and the
// other one is not.
func (m TrackMetadata) IsValid() bool {
	switch m.Kind {
	case MetadataKindGeneric:
		return m.Generic != nil && m.Database == nil
	case MetadataKindDatabase:
		return m.Database != nil && m.Generic == nil
	}
	return false
}

// FormatDuration renders milliseconds as MM:SS, or H:MM:SS past the hour.
// Zero and negative values render as 00:00.
func FormatDuration(ms int64) string {
	if ms <= 0 {
		return "00:00"
	}
	total := ms / 1000
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
