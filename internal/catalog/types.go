// Package catalog stores the marketplace catalog: voice actors, sound samples,
// pricing plans, site configuration and users, kept as one JSON document.
package catalog

// VoiceType distinguishes human voice actors from AI voices.
type VoiceType string

// Voice types.
const (
	VoiceTypeHuman VoiceType = "HUMAN"
	VoiceTypeAI    VoiceType = "AI"
)

// VoiceActor is a marketplace voice listing.
type VoiceActor struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PriceRange string    `json:"priceRange"`
	AvatarURL  string    `json:"avatarUrl"`
	DemoURL    string    `json:"demoUrl,omitempty"`
	Type       VoiceType `json:"type"`
	Category   []string  `json:"category"`
	Tags       []string  `json:"tags"`
	Rating     float64   `json:"rating"`
	Reviews    int       `json:"reviews"`
}

// SoundSample is a sound library item. A price of zero means free.
type SoundSample struct {
	BPM        *int     `json:"bpm,omitempty"`
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	AuthorID   string   `json:"authorId"`
	AuthorName string   `json:"authorName"`
	Category   string   `json:"category"`
	Duration   string   `json:"duration"`
	AudioURL   string   `json:"audioUrl"`
	Tags       []string `json:"tags"`
	Price      float64  `json:"price"`
	CreatedAt  int64    `json:"createdAt"`
}

// IconType selects the icon of a pricing plan.
type IconType string

// Plan icons.
const (
	IconZap    IconType = "zap"
	IconStar   IconType = "star"
	IconShield IconType = "shield"
)

// PricingPlan is a subscription tier.
type PricingPlan struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       string   `json:"price"`
	CTA         string   `json:"cta"`
	IconType    IconType `json:"iconType"`
	Features    []string `json:"features"`
	Recommended bool     `json:"recommended"`
}

// GlobalConfig holds site wide settings.
type GlobalConfig struct {
	SiteTitle         string `json:"siteTitle"`
	HeroTitle         string `json:"heroTitle"`
	HeroSubtitle      string `json:"heroSubtitle"`
	ContactEmail      string `json:"contactEmail"`
	ContactPhone      string `json:"contactPhone"`
	IsMaintenanceMode bool   `json:"isMaintenanceMode"`
}

// Role is the access level of a user.
type Role string

// User roles.
const (
	RoleCustomer Role = "customer"
	RoleActor    Role = "actor"
	RoleAdmin    Role = "admin"
)

// User is a registered account.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Document is the whole persisted catalog.
type Document struct {
	Actors []VoiceActor  `json:"actors"`
	Plans  []PricingPlan `json:"plans"`
	Users  []User        `json:"users"`
	Sounds []SoundSample `json:"sounds"`
	Config GlobalConfig  `json:"config"`
}
