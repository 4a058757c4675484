package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursedrive/internal/domain"
	driveModels "coursedrive/internal/domain/models/drive"
	models "coursedrive/internal/domain/models/quiz"
	"coursedrive/internal/domain/repositories"
	driveRepo "coursedrive/internal/domain/repositories/drive"
	"coursedrive/internal/domain/services"
	"coursedrive/internal/repository/memory"
)

var testRedis *redis.Client

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	pool, err := dockertest.NewPool("")
	if err == nil {
		err = pool.Client.Ping()
	}
	if err != nil {
		fmt.Printf("docker unavailable, skipping redis lock tests: %s\n", err)
		os.Exit(m.Run())
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7-alpine",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
	})
	if err != nil {
		fmt.Printf("Could not start resource: %s\n", err)
		os.Exit(1)
	}

	pool.MaxWait = 60 * time.Second
	url := fmt.Sprintf("redis://localhost:%s/0", resource.GetPort("6379/tcp"))

	if err := pool.Retry(func() error {
		var err error
		testRedis, err = NewRedisClient(context.Background(), url)
		return err
	}); err != nil {
		fmt.Printf("Could not connect to redis: %s\n", err)
		_ = pool.Purge(resource)
		os.Exit(1)
	}

	code := m.Run()

	testRedis.Close()
	if err := pool.Purge(resource); err != nil {
		fmt.Printf("Could not purge resource: %s\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

// stubGenerator counts calls and returns fixed questions after an optional gate
type stubGenerator struct {
	calls     atomic.Int32
	gate      chan struct{}
	questions []models.Question
	err       error
	onCall    func()
	lastReq   *services.QuizPrompt
}

func (g *stubGenerator) Name() string { return "stub" }

func (g *stubGenerator) Generate(ctx context.Context, req *services.QuizPrompt) ([]models.Question, error) {
	g.calls.Add(1)
	g.lastReq = req
	if g.gate != nil {
		select {
		case <-g.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.onCall != nil {
		g.onCall()
	}
	return g.questions, g.err
}

type quizFixture struct {
	nodeRepo driveRepo.NodeRepository
	quizRepo repositories.QuizRepository
	content  *driveModels.Node
	book     *driveModels.Node
}

func newQuizFixture(t *testing.T) *quizFixture {
	t.Helper()
	store := memory.NewStore()
	f := &quizFixture{
		nodeRepo: memory.NewNodeRepository(store),
		quizRepo: memory.NewQuizRepository(store),
	}

	f.book = &driveModels.Node{Kind: driveModels.KindBook, Title: "Math", CreatedBy: "u1"}
	require.NoError(t, f.nodeRepo.Create(context.Background(), f.book))

	f.content = &driveModels.Node{
		Kind:      driveModels.KindContent,
		Title:     "Fractions",
		ParentID:  &f.book.ID,
		CreatedBy: "u1",
		Data:      json.RawMessage(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"Halves and quarters."}]}]}`),
	}
	require.NoError(t, f.nodeRepo.Create(context.Background(), f.content))
	return f
}

func (f *quizFixture) service(gen services.QuizGenerator, locker Locker) services.QuizService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewQuizService(f.nodeRepo, f.quizRepo, gen, locker, "claude-test", logger)
}

func TestGetOrGenerate_GeneratesAndStores(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture(t)
	gen := &stubGenerator{questions: validQuestions()}
	svc := f.service(gen, nil)

	q, err := svc.GetOrGenerate(ctx, "u1", f.content.ID)
	require.NoError(t, err)
	assert.Equal(t, f.content.ID, q.ContentID)
	assert.Equal(t, "u1", q.CreatedBy)
	assert.Equal(t, "claude-test", q.Model)
	assert.Len(t, q.Questions, models.QuestionCount)

	assert.Equal(t, "Fractions", gen.lastReq.Title)
	assert.Equal(t, "Halves and quarters.", gen.lastReq.Body)
	assert.Equal(t, "claude-test", gen.lastReq.Model)

	again, err := svc.GetOrGenerate(ctx, "u1", f.content.ID)
	require.NoError(t, err)
	assert.Equal(t, q.ID, again.ID)
	assert.Equal(t, int32(1), gen.calls.Load(), "stored quiz is reused")
}

func TestGetOrGenerate_Errors(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture(t)
	gen := &stubGenerator{questions: validQuestions()}
	svc := f.service(gen, nil)

	tests := []struct {
		name      string
		userID    string
		contentID string
		wantErr   error
	}{
		{name: "missing id", userID: "u1", contentID: " ", wantErr: domain.ErrValidation},
		{name: "malformed id", userID: "u1", contentID: "nope", wantErr: domain.ErrValidation},
		{name: "book instead of content", userID: "u1", contentID: f.book.ID, wantErr: domain.ErrNotFound},
		{name: "not owned", userID: "u2", contentID: f.content.ID, wantErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetOrGenerate(ctx, tt.userID, tt.contentID)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Zero(t, gen.calls.Load())
}

func TestGetOrGenerate_NoGenerator(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture(t)
	svc := f.service(nil, nil)

	_, err := svc.GetOrGenerate(ctx, "u1", f.content.ID)
	assert.ErrorIs(t, err, domain.ErrUnavailable)

	require.NoError(t, f.quizRepo.Create(ctx, &models.Quiz{ContentID: f.content.ID, CreatedBy: "u1", Questions: validQuestions()}))
	q, err := svc.GetOrGenerate(ctx, "u1", f.content.ID)
	require.NoError(t, err, "a stored quiz is served without a generator")
	assert.Len(t, q.Questions, models.QuestionCount)
}

func TestGetOrGenerate_SoftFailure(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		gen  *stubGenerator
	}{
		{name: "nil questions", gen: &stubGenerator{}},
		{name: "malformed questions", gen: &stubGenerator{questions: validQuestions()[:2]}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newQuizFixture(t)
			_, err := f.service(tt.gen, nil).GetOrGenerate(ctx, "u1", f.content.ID)
			assert.ErrorIs(t, err, ErrGenerationFailed)

			_, err = f.quizRepo.GetByContentID(ctx, f.content.ID, "u1")
			assert.ErrorIs(t, err, domain.ErrNotFound, "nothing persisted")
		})
	}

	f := newQuizFixture(t)
	boom := errors.New("boom")
	_, err := f.service(&stubGenerator{err: boom}, nil).GetOrGenerate(ctx, "u1", f.content.ID)
	assert.ErrorIs(t, err, boom)
}

func TestGetOrGenerate_ConcurrentCallsShareOneGeneration(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture(t)
	gen := &stubGenerator{questions: validQuestions(), gate: make(chan struct{})}
	svc := f.service(gen, nil)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*models.Quiz, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.GetOrGenerate(ctx, "u1", f.content.ID)
		}(i)
	}

	require.Eventually(t, func() bool { return gen.calls.Load() == 1 }, 5*time.Second, 5*time.Millisecond)
	close(gen.gate)
	wg.Wait()

	assert.Equal(t, int32(1), gen.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].ID, results[i].ID)
	}
}

func TestGetOrGenerate_DuplicateInsertReturnsStoredQuiz(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture(t)

	winner := &models.Quiz{ContentID: f.content.ID, CreatedBy: "u1", Questions: validQuestions(), Model: "other-instance"}
	gen := &stubGenerator{
		questions: validQuestions(),
		onCall: func() {
			// Another instance persists first
			require.NoError(t, f.quizRepo.Create(ctx, winner))
		},
	}

	q, err := f.service(gen, nil).GetOrGenerate(ctx, "u1", f.content.ID)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, q.ID)
	assert.Equal(t, "other-instance", q.Model)
}

// recordingLocker stores a quiz while "waiting", as another instance would
type recordingLocker struct {
	acquired int
	released int
	onWait   func()
}

func (l *recordingLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.acquired++
	if l.onWait != nil {
		l.onWait()
	}
	return func() { l.released++ }, nil
}

func TestGetOrGenerate_LockerRechecksStore(t *testing.T) {
	ctx := context.Background()
	f := newQuizFixture(t)
	gen := &stubGenerator{questions: validQuestions()}
	locker := &recordingLocker{onWait: func() {
		require.NoError(t, f.quizRepo.Create(ctx, &models.Quiz{ContentID: f.content.ID, CreatedBy: "u1", Questions: validQuestions()}))
	}}

	q, err := f.service(gen, locker).GetOrGenerate(ctx, "u1", f.content.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, q.ID)
	assert.Zero(t, gen.calls.Load())
	assert.Equal(t, 1, locker.acquired)
	assert.Equal(t, 1, locker.released)
}

func TestLoremGenerator(t *testing.T) {
	gen := NewLoremGenerator()
	questions, err := gen.Generate(context.Background(), &services.QuizPrompt{Title: "Fractions"})
	require.NoError(t, err)
	require.NoError(t, ValidateQuestions(questions))

	f := newQuizFixture(t)
	q, err := f.service(gen, nil).GetOrGenerate(context.Background(), "u1", f.content.ID)
	require.NoError(t, err)
	assert.Equal(t, "lorem", q.Model)
}

func TestRedisLocker(t *testing.T) {
	if testRedis == nil {
		t.Skip("redis lock tests need docker")
	}
	ctx := context.Background()
	locker := NewRedisLocker(testRedis, fmt.Sprintf("test-%d:", time.Now().UnixNano()), time.Minute)
	locker.poll = 10 * time.Millisecond

	release, err := locker.Acquire(ctx, "k")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(waitCtx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded, "second holder waits")

	acquired := make(chan func(), 1)
	go func() {
		r, err := locker.Acquire(ctx, "k")
		if err == nil {
			acquired <- r
		}
	}()

	release()
	select {
	case r := <-acquired:
		r()
	case <-time.After(5 * time.Second):
		t.Fatal("lock was not handed over after release")
	}
}
