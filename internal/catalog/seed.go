package catalog

import "time"

// DocumentKey is the key the catalog document is stored under.
const DocumentKey = "namluvto_db_v1"

// Seed returns the initial catalog written when the store is empty.
func Seed(now time.Time) *Document {
	createdAt := now.UnixMilli()

	return &Document{
		Actors: []VoiceActor{
			{
				ID:         "1",
				Name:       "Petr Svoboda",
				Category:   []string{"Reklama", "Audioknihy"},
				Tags:       []string{"Hluboký", "Důvěryhodný"},
				PriceRange: "od 1200 Kč",
				AvatarURL:  "https://picsum.photos/150/150?random=2",
				DemoURL:    "https://actions.google.com/sounds/v1/speech/voice_male_en_us_greeting.ogg",
				Rating:     4.9,
				Reviews:    124,
				Type:       VoiceTypeHuman,
			},
			{
				ID:         "2",
				Name:       "Jana Kovářová",
				Category:   []string{"E-learning", "Ústředny"},
				Tags:       []string{"Jemný", "Mladý"},
				PriceRange: "od 1000 Kč",
				AvatarURL:  "https://picsum.photos/150/150?random=3",
				DemoURL:    "https://actions.google.com/sounds/v1/speech/voice_female_en_us_greeting.ogg",
				Rating:     5.0,
				Reviews:    89,
				Type:       VoiceTypeHuman,
			},
		},
		Plans: []PricingPlan{
			{
				ID:          "plan_free",
				Name:        "AI FREE",
				Price:       "0",
				Features:    []string{"5x AI voiceover denně", "Standardní AI hlasy", "Kvalita 128kbps"},
				CTA:         "Vyzkoušet zdarma",
				Recommended: false,
				IconType:    IconZap,
			},
			{
				ID:          "plan_pro",
				Name:        "PROFESSIONAL",
				Price:       "490",
				Features:    []string{"Neomezené AI voiceovery", "Všechny prémiové hlasy", "Komerční licence"},
				CTA:         "Začít hned",
				Recommended: true,
				IconType:    IconStar,
			},
		},
		Config: GlobalConfig{
			SiteTitle:         "namluv.to - Digitální hlasová platforma",
			HeroTitle:         "Najdi si svůj hlas.",
			HeroSubtitle:      "Získejte perfektní voiceover během několika minut. Vyberte si z stovek lidských interpretů.",
			ContactEmail:      "hello@namluv.to",
			ContactPhone:      "+420 777 666 555",
			IsMaintenanceMode: false,
		},
		Users: []User{},
		Sounds: []SoundSample{
			{
				ID:         "s1",
				Title:      "Cinematic Transition Swoosh",
				AuthorID:   "admin",
				AuthorName: "namluv.to Team",
				Category:   "FX",
				Tags:       []string{"Cinematic", "Swoosh", "Action"},
				Duration:   "0:03",
				AudioURL:   "https://actions.google.com/sounds/v1/foley/swoosh_transition.ogg",
				Price:      0,
				CreatedAt:  createdAt,
			},
			{
				ID:         "s2",
				Title:      "Cozy Rain Ambience",
				AuthorID:   "1",
				AuthorName: "Petr Svoboda",
				Category:   "Atmosféry",
				Tags:       []string{"Nature", "Rain", "Relax"},
				Duration:   "1:30",
				AudioURL:   "https://actions.google.com/sounds/v1/weather/rain_on_roof.ogg",
				Price:      50,
				CreatedAt:  createdAt,
			},
		},
	}
}
