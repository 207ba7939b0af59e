package domain

// Difficulty is the difficulty tag of a card.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case Easy, Medium, Hard:
		return true
	}
	return false
}

// Bucket is the (language, category, difficulty) scope that all counts,
// draws and replenishment decisions are partitioned by.
type Bucket struct {
	Language   string
	Category   string
	Difficulty Difficulty
}

// Card is a single playable card: a target word plus the words the
// explaining player is not allowed to say.
type Card struct {
	ID         string     `json:"id"`
	Language   string     `json:"language"`
	Category   string     `json:"category"`
	Difficulty Difficulty `json:"difficulty"`
	Target     string     `json:"target"`
	Forbidden  []string   `json:"forbidden"`
}

// Bucket returns the bucket the card belongs to.
func (c Card) Bucket() Bucket {
	return Bucket{Language: c.Language, Category: c.Category, Difficulty: c.Difficulty}
}

// TrashCard is a soft-deleted card. DeletedAt is epoch seconds; once the
// retention window elapses the card is purged for good.
type TrashCard struct {
	Card
	DeletedAt int64 `json:"deletedAt"`
}
