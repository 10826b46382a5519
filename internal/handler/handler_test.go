package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/offtimeapp/offtime/internal/auth"
	"github.com/offtimeapp/offtime/internal/database"
	"github.com/offtimeapp/offtime/internal/model"
	"github.com/offtimeapp/offtime/internal/store"
	"github.com/offtimeapp/offtime/internal/summary"
)

// testEnv wires real stores over an in-memory database behind a mux using
// the production route patterns.
type testEnv struct {
	users     *store.UserStore
	groups    *store.GroupStore
	usage     *store.UsageStore
	summaries *store.SummaryStore
	votes     *store.VoteStore
	generator *stubGenerator
	mux       *http.ServeMux
}

type stubGenerator struct {
	calls  int
	result summary.Result
	err    error
}

func (g *stubGenerator) Generate(ctx context.Context, digest string) (summary.Result, error) {
	g.calls++
	if g.err != nil {
		return summary.Result{}, g.err
	}
	return g.result, nil
}

func setupHandlerTest(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	env := &testEnv{
		users:     store.NewUserStore(db),
		groups:    store.NewGroupStore(db),
		usage:     store.NewUsageStore(db),
		summaries: store.NewSummaryStore(db),
		votes:     store.NewVoteStore(db),
		generator: &stubGenerator{result: summary.Result{Summary: "A quiet day.", Feedback: "Keep it up."}},
		mux:       http.NewServeMux(),
	}

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	provider := summary.NewProvider(env.summaries, env.usage, env.generator, logger)

	userH := NewUserHandler(env.users, jwtManager, t.TempDir(), logger)
	groupH := NewGroupHandler(env.groups, env.users, env.summaries, nil, logger)
	usageH := NewUsageHandler(env.usage, logger)
	summaryH := NewSummaryHandler(provider, logger)
	voteH := NewVoteHandler(env.votes, env.groups, env.summaries, nil, logger)

	env.mux.HandleFunc("POST /users/signup", userH.Signup)
	env.mux.HandleFunc("POST /users/login", userH.Login)
	env.mux.HandleFunc("GET /users/me", userH.Me)
	env.mux.HandleFunc("PATCH /users/me", userH.UpdateMe)
	env.mux.HandleFunc("POST /group", groupH.Create)
	env.mux.HandleFunc("GET /group", groupH.List)
	env.mux.HandleFunc("PATCH /group/{id}", groupH.Update)
	env.mux.HandleFunc("GET /group/{id}/members", groupH.Members)
	env.mux.HandleFunc("POST /group/{id}/members/{user_id}", groupH.AddMember)
	env.mux.HandleFunc("DELETE /group/{id}/members/{user_id}", groupH.RemoveMember)
	env.mux.HandleFunc("GET /group/{id}/vote", voteH.Info)
	env.mux.HandleFunc("POST /group/{id}/vote", voteH.Cast)
	env.mux.HandleFunc("GET /group/{id}/vote/result", voteH.Result)
	env.mux.HandleFunc("GET /group/{id}/vote/history", voteH.History)
	env.mux.HandleFunc("POST /usage/record", usageH.Record)
	env.mux.HandleFunc("GET /usage/list", usageH.List)
	env.mux.HandleFunc("POST /usage/{id}/memo", usageH.SetMemo)
	env.mux.HandleFunc("GET /usage/{id}/memo", usageH.GetMemo)
	env.mux.HandleFunc("DELETE /usage/{id}/memo", usageH.ClearMemo)
	env.mux.HandleFunc("GET /summary", summaryH.Get)

	return env
}

// do performs a request as the given user. userID 0 means unauthenticated.
func (env *testEnv) do(t *testing.T, method, target string, userID int64, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, reader)
	if userID != 0 {
		req = req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{UserID: userID}))
	}
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) createUser(t *testing.T, username string) *model.User {
	t.Helper()
	u, err := env.users.Create(username, "$2a$10$fakehash")
	if err != nil {
		t.Fatalf("create user %q: %v", username, err)
	}
	return u
}

func (env *testEnv) createGroupWith(t *testing.T, name string, members ...int64) *model.Group {
	t.Helper()
	g, err := env.groups.Create(name, "")
	if err != nil {
		t.Fatalf("create group %q: %v", name, err)
	}
	for _, id := range members {
		if _, err := env.groups.AddMember(g.ID, id); err != nil {
			t.Fatalf("add member %d: %v", id, err)
		}
	}
	return g
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (string, map[string]any) {
	t.Helper()
	var env struct {
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return env.Message, env.Data
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return env.Message
}
