package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/digkill/genstudio/internal/clock"
	"github.com/digkill/genstudio/internal/genai"
	"github.com/digkill/genstudio/internal/memstore"
	"github.com/digkill/genstudio/internal/models"
	"github.com/digkill/genstudio/pkg/logger"
)

// plainHasher keeps tests fast; bcrypt is covered separately.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (plainHasher) Verify(password, hash string) bool    { return hash == "hashed:"+password }

type fakeGenerator struct {
	mu        sync.Mutex
	calls     int
	err       error
	images    []genai.Image
	opID      string
	operation genai.Operation
	reply     *genai.ChatReply
	lastChat  genai.ChatRequest
}

func (g *fakeGenerator) record() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.err
}

func (g *fakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *fakeGenerator) GenerateImages(_ context.Context, req genai.ImageRequest) ([]genai.Image, error) {
	if err := g.record(); err != nil {
		return nil, err
	}
	if g.images != nil {
		return g.images, nil
	}
	out := make([]genai.Image, req.Count)
	for i := range out {
		out[i] = genai.Image{URL: "https://backend.example/img.png"}
	}
	return out, nil
}

func (g *fakeGenerator) EnhanceImage(context.Context, string, string) (*genai.Image, error) {
	if err := g.record(); err != nil {
		return nil, err
	}
	return &genai.Image{URL: "https://backend.example/enhanced.png"}, nil
}

func (g *fakeGenerator) EditImage(context.Context, string, string) (*genai.Image, error) {
	if err := g.record(); err != nil {
		return nil, err
	}
	return &genai.Image{URL: "https://backend.example/edited.png"}, nil
}

func (g *fakeGenerator) StartVideo(context.Context, string) (string, error) {
	if err := g.record(); err != nil {
		return "", err
	}
	return g.opID, nil
}

func (g *fakeGenerator) CheckVideo(context.Context, string) (genai.Operation, error) {
	if err := g.record(); err != nil {
		return nil, err
	}
	return g.operation, nil
}

func (g *fakeGenerator) Chat(_ context.Context, req genai.ChatRequest) (*genai.ChatReply, error) {
	if err := g.record(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.lastChat = req
	g.mu.Unlock()
	if g.reply != nil {
		return g.reply, nil
	}
	return &genai.ChatReply{Text: "hello"}, nil
}

type fakeBlobs struct {
	err error
}

func (b *fakeBlobs) Upload(_ context.Context, folder string, _ []byte, _ string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	return "https://cdn.example/" + folder + "/upload", nil
}

func (b *fakeBlobs) CopyFromURL(_ context.Context, folder, sourceURL string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	return "https://cdn.example/" + folder + "/" + sourceURL[strings.LastIndex(sourceURL, "/")+1:], nil
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []models.PaymentRequest
	err  error
}

func (n *captureNotifier) NotifyPaymentRequest(_ context.Context, req models.PaymentRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, req)
	return n.err
}

var errBackend = errors.New("backend unavailable")

var testEpoch = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// testEnv wires every service over one in-memory store.
type testEnv struct {
	store     *memstore.Store
	clock     *clock.FakeClock
	gen       *fakeGenerator
	blobs     *fakeBlobs
	notifier  *captureNotifier
	activity  *ActivityService
	settings  *SettingsService
	auth      *AuthService
	ledger    *LedgerService
	rewards   *RewardService
	plans     *PlanService
	promos    *PromoService
	payments  *PaymentService
	studio    *GenerationService
	dashboard *DashboardService
	bootstrap *Bootstrap
}

func newTestEnv() *testEnv {
	store := memstore.New()
	clk := clock.NewFakeClock(testEpoch)
	log := logger.Nop()
	env := &testEnv{
		store:    store,
		clock:    clk,
		gen:      &fakeGenerator{opID: "op-1"},
		blobs:    &fakeBlobs{},
		notifier: &captureNotifier{},
	}

	env.activity = NewActivityService(store.Activity(), clk, log, 500)
	env.settings = NewSettingsService(store.Settings(), env.activity)
	env.auth = NewAuthService(store.Users(), plainHasher{}, env.activity, clk, log, 25)
	env.ledger = NewLedgerService(store.Users(), env.activity, log)
	env.rewards = NewRewardService(store.Users(), env.settings, env.activity, clk, log)
	env.plans = NewPlanService(store.Plans(), env.activity, "INR")
	env.promos = NewPromoService(store.Promos(), env.activity, clk)
	env.payments = NewPaymentService(store.Payments(), store.Users(), env.plans, env.promos, env.settings,
		env.activity, env.notifier, clk, log)
	env.studio = NewGenerationService(GenerationDeps{
		Ledger:   env.ledger,
		Users:    store.Users(),
		Images:   store.Images(),
		Videos:   store.Videos(),
		Chats:    store.Chats(),
		Settings: env.settings,
		Activity: env.activity,
		Gen:      env.gen,
		Blobs:    env.blobs,
		Costs:    Costs{Image: 5, Enhance: 5, Edit: 5, Video: 25, Chat: 1},
		Clock:    clk,
		Log:      log,
	})
	env.dashboard = NewDashboardService(store.Users(), store.Payments(), env.activity)
	env.bootstrap = &Bootstrap{
		Users:    store.Users(),
		Hasher:   plainHasher{},
		Plans:    env.plans,
		Promos:   env.promos,
		Settings: env.settings,
		Clock:    clk,
		Log:      log,
	}
	return env
}

// addUser stores a regular user with the given balance.
func (e *testEnv) addUser(id string, credits int64) models.User {
	u := models.User{
		ID:             id,
		FullName:       "User " + id,
		Email:          id + "@example.com",
		PasswordHash:   "hashed:secret",
		Credits:        credits,
		RewardCycleDay: 1,
		CreatedAt:      e.clock.Now(),
	}
	e.store.PutUser(u)
	return u
}

func (e *testEnv) addAdmin(id string) models.User {
	u := e.addUser(id, 1_000_000_000)
	u.IsAdmin = true
	e.store.PutUser(u)
	return u
}

func (e *testEnv) credits(id string) int64 {
	return e.store.User(id).Credits
}

func (e *testEnv) lastActivity() models.ActivityLogItem {
	log := e.store.ActivityLog()
	if len(log) == 0 {
		return models.ActivityLogItem{}
	}
	return log[0]
}
