package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-studio/internal/catalog"
)

func startJetStream(t *testing.T) nats.JetStreamContext {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	natsServer := test.RunServer(&opts)
	t.Cleanup(natsServer.Shutdown)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	require.NoError(t, err)
	t.Cleanup(natsConnection.Close)

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	return jetstreamContext
}

func receive(t *testing.T, updates <-chan *catalog.Document) *catalog.Document {
	t.Helper()

	select {
	case doc := <-updates:
		require.NotNil(t, doc)

		return doc
	case <-time.After(5 * time.Second):
		t.Fatal("no catalog update received")

		return nil
	}
}

func TestSeed(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1700000000000)
	doc := catalog.Seed(now)

	assert.Len(t, doc.Actors, 2)
	assert.Len(t, doc.Plans, 2)
	assert.Len(t, doc.Sounds, 2)
	assert.Empty(t, doc.Users)
	assert.NotNil(t, doc.Users)
	assert.Equal(t, "hello@namluv.to", doc.Config.ContactEmail)
	assert.Equal(t, int64(1700000000000), doc.Sounds[0].CreatedAt)
	assert.True(t, doc.Plans[1].Recommended)
}

func TestKVRepository_SeedsAndPersists(t *testing.T) {
	t.Parallel()

	js := startJetStream(t)
	ctx := context.Background()

	repo, err := catalog.NewKVRepository(js, "catalog", nil)
	require.NoError(t, err)

	doc, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Petr Svoboda", doc.Actors[0].Name)

	doc.Config.IsMaintenanceMode = true
	require.NoError(t, repo.Put(ctx, doc))

	reopened, err := catalog.NewKVRepository(js, "catalog", nil)
	require.NoError(t, err)

	stored, err := reopened.Get(ctx)
	require.NoError(t, err)
	assert.True(t, stored.Config.IsMaintenanceMode, "reopening must not reseed")

	require.ErrorIs(t, repo.Put(ctx, nil), catalog.ErrNilDocument)
}

func TestKVRepository_SubscribersReceiveEveryWrite(t *testing.T) {
	t.Parallel()

	js := startJetStream(t)

	repo, err := catalog.NewKVRepository(js, "catalog-watch", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := repo.Subscribe(ctx)
	require.NoError(t, err)

	second, err := repo.Subscribe(ctx)
	require.NoError(t, err)

	service := catalog.NewService(repo, nil)

	require.NoError(t, service.UpdateConfig(ctx, catalog.GlobalConfig{SiteTitle: "one"}))
	require.NoError(t, service.UpdateConfig(ctx, catalog.GlobalConfig{SiteTitle: "two"}))

	for _, updates := range []<-chan *catalog.Document{first, second} {
		assert.Equal(t, "one", receive(t, updates).Config.SiteTitle)
		assert.Equal(t, "two", receive(t, updates).Config.SiteTitle)
	}

	cancel()

	require.Eventually(t, func() bool {
		_, open := <-first

		return !open
	}, 5*time.Second, 10*time.Millisecond)
}

func TestMemoryRepository_Subscribe(t *testing.T) {
	t.Parallel()

	repo, err := catalog.NewMemoryRepository(catalog.Seed(time.Now()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	updates, err := repo.Subscribe(ctx)
	require.NoError(t, err)

	doc, err := repo.Get(ctx)
	require.NoError(t, err)

	doc.Actors = nil
	require.NoError(t, repo.Put(ctx, doc))
	assert.Empty(t, receive(t, updates).Actors)

	cancel()

	_, open := <-updates
	for open {
		_, open = <-updates
	}

	require.NoError(t, repo.Put(context.Background(), doc))
}

func TestService_Actors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	repo, err := catalog.NewMemoryRepository(catalog.Seed(time.Now()))
	require.NoError(t, err)

	service := catalog.NewService(repo, nil)

	created, err := service.UpsertActor(ctx, catalog.VoiceActor{Name: "Eva", Type: catalog.VoiceTypeAI})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	created.Rating = 4.5
	_, err = service.UpsertActor(ctx, created)
	require.NoError(t, err)

	actors, err := service.Actors(ctx)
	require.NoError(t, err)
	require.Len(t, actors, 3)
	assert.InDelta(t, 4.5, actors[2].Rating, 1e-9)

	require.NoError(t, service.DeleteActor(ctx, "1"))
	require.NoError(t, service.DeleteActor(ctx, "missing"))

	actors, err = service.Actors(ctx)
	require.NoError(t, err)
	assert.Len(t, actors, 2)
}

func TestService_Sounds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	repo, err := catalog.NewMemoryRepository(catalog.Seed(time.Now()))
	require.NoError(t, err)

	service := catalog.NewService(repo, nil)

	bpm := 120
	created, err := service.UpsertSound(ctx, catalog.SoundSample{Title: "Beat", BPM: &bpm})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Positive(t, created.CreatedAt)

	require.NoError(t, service.DeleteSound(ctx, "s1"))

	sounds, err := service.Sounds(ctx)
	require.NoError(t, err)
	require.Len(t, sounds, 2)
	assert.Equal(t, "s2", sounds[0].ID)
	require.NotNil(t, sounds[1].BPM)
	assert.Equal(t, 120, *sounds[1].BPM)
}

func TestService_UpdatePlanOnlyUpdatesExisting(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	repo, err := catalog.NewMemoryRepository(catalog.Seed(time.Now()))
	require.NoError(t, err)

	service := catalog.NewService(repo, nil)

	require.NoError(t, service.UpdatePlan(ctx, catalog.PricingPlan{ID: "plan_pro", Name: "PRO", Price: "590"}))
	require.NoError(t, service.UpdatePlan(ctx, catalog.PricingPlan{ID: "plan_new", Name: "NEW"}))

	plans, err := service.Plans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "590", plans[1].Price)

	require.NoError(t, service.UpdateConfig(ctx, catalog.GlobalConfig{HeroTitle: "Nový"}))

	cfg, err := service.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Nový", cfg.HeroTitle)
}

func TestService_UpsertSoundRejectsNonAudio(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	repo, err := catalog.NewMemoryRepository(catalog.Seed(time.Now()))
	require.NoError(t, err)

	service := catalog.NewService(repo, nil)

	for _, audioURL := range []string{
		"https://example.com/cover.png",
		service.UploadFile("notes.txt", []byte("hi")),
		"https://example.com/download",
	} {
		_, err = service.UpsertSound(ctx, catalog.SoundSample{Title: "Bad", AudioURL: audioURL})
		require.ErrorIs(t, err, catalog.ErrNotAudio, audioURL)
	}

	for _, audioURL := range []string{
		"https://example.com/loops/beat.OGG?download=1",
		service.UploadFile("take.wav", []byte("RIFF")),
	} {
		_, err = service.UpsertSound(ctx, catalog.SoundSample{Title: "Good", AudioURL: audioURL})
		require.NoError(t, err, audioURL)
	}

	sounds, err := service.Sounds(ctx)
	require.NoError(t, err)
	assert.Len(t, sounds, 4)
}

func TestService_UploadFile(t *testing.T) {
	t.Parallel()

	service := catalog.NewService(nil, nil)

	assert.Equal(t, "data:audio/mpeg;base64,aGk=", service.UploadFile("demo.mp3", []byte("hi")))
	assert.Equal(t, "data:application/octet-stream;base64,", service.UploadFile("blob", nil))
}
