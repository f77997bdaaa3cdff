package db

import "time"

// Source tiers, from primary/official down to unverified.
const (
	TierT0  = "T0"
	TierT1  = "T1"
	TierT1b = "T1b"
	TierT2  = "T2"
	TierT3  = "T3"
)

// Verification statuses carried by persisted items.
const (
	StatusConfirmed  = "CONFIRMED"
	StatusDeveloping = "DEVELOPING"
	StatusTentative  = "TENTATIVE"
	StatusContested  = "CONTESTED"
)

// Source maps bubble.sources: one registered feed endpoint.
type Source struct {
	ID              string    `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	URL             string    `gorm:"column:url;type:text;not null;unique"`
	Type            string    `gorm:"column:type;type:text;not null"`
	Title           *string   `gorm:"column:title;type:text"`
	CountryCode     *string   `gorm:"column:country_code;type:text"`
	PrimaryLanguage *string   `gorm:"column:primary_language;type:text"`
	CreatedAt       time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt       time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Source) TableName() string { return "bubble.sources" }

// Item maps bubble.items: one normalized, novelty-scored document.
type Item struct {
	ID                  string     `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	SourceID            string     `gorm:"column:source_id;type:uuid;not null"`
	URL                 string     `gorm:"column:url;type:text;not null;unique"`
	Hash                string     `gorm:"column:hash;type:text;not null;unique"`
	Title               string     `gorm:"column:title;type:text;not null"`
	Author              *string    `gorm:"column:author;type:text"`
	PublishedAt         *time.Time `gorm:"column:published_at;type:timestamptz"`
	Lang                *string    `gorm:"column:lang;type:text"`
	Tags                StringList `gorm:"column:tags;type:jsonb;not null;default:'[]'"`
	Text                string     `gorm:"column:text;type:text;not null"`
	OriginalText        *string    `gorm:"column:original_text;type:text"`
	TranslationProvider *string    `gorm:"column:translation_provider;type:text"`
	NoveltyScore        float64    `gorm:"column:novelty_score;type:double precision;not null;default:0"`
	NoveltyAngles       StringList `gorm:"column:novelty_angles;type:jsonb;not null;default:'[]'"`
	Tier                string     `gorm:"column:tier;type:text;not null;default:T2"`
	Status              string     `gorm:"column:status;type:text;not null;default:DEVELOPING"`
	Provenance          JSONMap    `gorm:"column:provenance;type:jsonb"`
	ContextSummary      *string    `gorm:"column:context_summary;type:text"`
	ContextBullets      StringList `gorm:"column:context_bullets;type:jsonb"`
	StudyPrompts        StringList `gorm:"column:study_prompts;type:jsonb"`
	Channels            StringList `gorm:"column:channels;type:jsonb"`
	Excerpt             *string    `gorm:"column:excerpt;type:text"`
	ContextMetadata     JSONMap    `gorm:"column:context_metadata;type:jsonb"`
	ReadingTimeMinutes  int        `gorm:"column:reading_time_minutes;type:integer;not null;default:1"`
	QualityScore        *float64   `gorm:"column:quality_score;type:double precision"`
	QualityVerdict      *string    `gorm:"column:quality_verdict;type:text"`
	QualityReasons      StringList `gorm:"column:quality_reasons;type:jsonb"`
	CreatedAt           time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Item) TableName() string { return "bubble.items" }

// Event maps bubble.events: deck views and swipes used for the 24h
// recently-shown exclusion.
type Event struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    string    `gorm:"column:user_id;type:text;not null;index"`
	ItemID    string    `gorm:"column:item_id;type:uuid;not null"`
	Name      string    `gorm:"column:name;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Event) TableName() string { return "bubble.events" }
