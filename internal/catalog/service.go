package catalog

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/book-expert/voice-studio/internal/tts/ttsutils"
)

// ErrNotAudio is returned when a sound listing points at something that is not audio.
var ErrNotAudio = errors.New("sound sample is not an audio file")

// Service applies record level changes to the catalog document. Every
// mutation reads the document, changes it and writes the whole document back.
type Service struct {
	repo Repository
	log  *logger.Logger
	now  func() time.Time
	mu   sync.Mutex
}

// NewService creates a service over repo.
func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// Actors lists voice actors.
func (s *Service) Actors(ctx context.Context) ([]VoiceActor, error) {
	doc, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}

	return doc.Actors, nil
}

// UpsertActor replaces the actor with the same id or appends it. An empty id gets a new uuid.
func (s *Service) UpsertActor(ctx context.Context, actor VoiceActor) (VoiceActor, error) {
	if actor.ID == "" {
		actor.ID = uuid.New().String()
	}

	err := s.mutate(ctx, func(doc *Document) {
		index := slices.IndexFunc(doc.Actors, func(a VoiceActor) bool { return a.ID == actor.ID })
		if index >= 0 {
			doc.Actors[index] = actor
		} else {
			doc.Actors = append(doc.Actors, actor)
		}
	})

	return actor, err
}

// DeleteActor removes the actor with id. Unknown ids are ignored.
func (s *Service) DeleteActor(ctx context.Context, id string) error {
	return s.mutate(ctx, func(doc *Document) {
		doc.Actors = slices.DeleteFunc(doc.Actors, func(a VoiceActor) bool { return a.ID == id })
	})
}

// Sounds lists sound samples.
func (s *Service) Sounds(ctx context.Context) ([]SoundSample, error) {
	doc, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}

	return doc.Sounds, nil
}

// UpsertSound replaces the sound with the same id or appends it. An empty id
// gets a new uuid and a zero creation time is set to now.
func (s *Service) UpsertSound(ctx context.Context, sound SoundSample) (SoundSample, error) {
	if !isAudioURL(sound.AudioURL) {
		return SoundSample{}, fmt.Errorf("%w: %q", ErrNotAudio, truncate(sound.AudioURL))
	}

	if sound.ID == "" {
		sound.ID = uuid.New().String()
	}

	if sound.CreatedAt == 0 {
		sound.CreatedAt = s.now().UnixMilli()
	}

	err := s.mutate(ctx, func(doc *Document) {
		index := slices.IndexFunc(doc.Sounds, func(item SoundSample) bool { return item.ID == sound.ID })
		if index >= 0 {
			doc.Sounds[index] = sound
		} else {
			doc.Sounds = append(doc.Sounds, sound)
		}
	})

	return sound, err
}

// DeleteSound removes the sound with id. Unknown ids are ignored.
func (s *Service) DeleteSound(ctx context.Context, id string) error {
	return s.mutate(ctx, func(doc *Document) {
		doc.Sounds = slices.DeleteFunc(doc.Sounds, func(item SoundSample) bool { return item.ID == id })
	})
}

// Plans lists pricing plans.
func (s *Service) Plans(ctx context.Context) ([]PricingPlan, error) {
	doc, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}

	return doc.Plans, nil
}

// UpdatePlan replaces an existing plan. Plans cannot be added, so an unknown id
// changes nothing.
func (s *Service) UpdatePlan(ctx context.Context, plan PricingPlan) error {
	return s.mutate(ctx, func(doc *Document) {
		index := slices.IndexFunc(doc.Plans, func(p PricingPlan) bool { return p.ID == plan.ID })
		if index < 0 {
			if s.log != nil {
				s.log.Warn("Ignoring update of unknown plan %q", plan.ID)
			}

			return
		}

		doc.Plans[index] = plan
	})
}

// Config returns the site configuration.
func (s *Service) Config(ctx context.Context) (GlobalConfig, error) {
	doc, err := s.repo.Get(ctx)
	if err != nil {
		return GlobalConfig{}, err
	}

	return doc.Config, nil
}

// UpdateConfig replaces the site configuration.
func (s *Service) UpdateConfig(ctx context.Context, cfg GlobalConfig) error {
	return s.mutate(ctx, func(doc *Document) {
		doc.Config = cfg
	})
}

// UploadFile stores nothing. It returns the file inlined as a data URL, which
// is what listings keep in their avatar, demo and audio fields.
func (s *Service) UploadFile(name string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", ttsutils.MimeType(name), base64.StdEncoding.EncodeToString(data))
}

func (s *Service) mutate(ctx context.Context, change func(*Document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.repo.Get(ctx)
	if err != nil {
		return err
	}

	change(doc)

	return s.repo.Put(ctx, doc)
}

// isAudioURL accepts an empty field, an audio data URL or a link to an audio file.
func isAudioURL(raw string) bool {
	if raw == "" {
		return true
	}

	if strings.HasPrefix(raw, "data:") {
		return strings.HasPrefix(raw, "data:audio/")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return ttsutils.IsValidAudioFile(parsed.Path)
}

func truncate(value string) string {
	const maxShown = 48

	if len(value) <= maxShown {
		return value
	}

	return value[:maxShown] + "..."
}
