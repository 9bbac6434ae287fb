package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/openfellowship/commons/backend/internal/auth"
	"github.com/openfellowship/commons/backend/internal/review"
	"github.com/openfellowship/commons/backend/internal/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testBotToken = "12345:router-test-bot-token"

var (
	databaseSequence atomic.Int64
	testClockNow     = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
)

type sequentialIDProvider struct {
	counter atomic.Int64
}

func (p *sequentialIDProvider) NewID() (string, error) {
	return fmt.Sprintf("server-id-%04d", p.counter.Add(1)), nil
}

type testEnv struct {
	handler http.Handler
	db      *gorm.DB
	users   *users.Service
	tokens  *auth.TokenIssuer
}

func newTestEnv(testContext *testing.T) *testEnv {
	testContext.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:server_test_%d?mode=memory&cache=shared", databaseSequence.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(testContext, err)
	sqlDB, err := db.DB()
	require.NoError(testContext, err)
	sqlDB.SetMaxOpenConns(1)
	testContext.Cleanup(func() { sqlDB.Close() })

	require.NoError(testContext, db.AutoMigrate(
		&users.User{},
		&review.ContentBlock{},
		&review.Comment{},
		&review.CommentReply{},
		&review.EditSuggestion{},
		&review.ContentHistory{},
	))

	clock := func() time.Time { return testClockNow }
	idProvider := &sequentialIDProvider{}

	usersService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		Clock:      clock,
		IDProvider: idProvider,
	})
	require.NoError(testContext, err)

	reviewService, err := review.NewService(review.ServiceConfig{
		Database:   db,
		Clock:      clock,
		IDProvider: idProvider,
		Names:      usersService,
	})
	require.NoError(testContext, err)

	issuer := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("router-test-secret"),
		Issuer:        "commons-api",
		Audience:      "commons-api",
		TokenTTL:      time.Hour,
		Clock:         clock,
	})
	verifier := auth.NewTelegramVerifier(auth.TelegramVerifierConfig{
		BotToken: testBotToken,
		Clock:    clock,
	})

	handler, err := NewHTTPHandler(Dependencies{
		TelegramVerifier: verifier,
		TokenManager:     issuer,
		UsersService:     usersService,
		ReviewService:    reviewService,
	})
	require.NoError(testContext, err)

	return &testEnv{handler: handler, db: db, users: usersService, tokens: issuer}
}

func signProfile(profile auth.TelegramProfile) string {
	fields := map[string]string{
		"id":         fmt.Sprintf("%d", profile.ID),
		"first_name": profile.FirstName,
		"auth_date":  fmt.Sprintf("%d", profile.AuthDate),
	}
	if profile.LastName != "" {
		fields["last_name"] = profile.LastName
	}
	if profile.Username != "" {
		fields["username"] = profile.Username
	}
	if profile.PhotoURL != "" {
		fields["photo_url"] = profile.PhotoURL
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+fields[key])
	}

	secret := sha256.Sum256([]byte(testBotToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

func (env *testEnv) do(testContext *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	testContext.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(testContext, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	env.handler.ServeHTTP(recorder, request)
	return recorder
}

// login runs the Telegram flow over HTTP and returns the bearer token.
func (env *testEnv) login(testContext *testing.T, telegramID int64, username string) (string, userPayload) {
	testContext.Helper()
	profile := auth.TelegramProfile{
		ID:        telegramID,
		FirstName: username,
		Username:  username,
		AuthDate:  testClockNow.Add(-time.Minute).Unix(),
	}
	profile.Hash = signProfile(profile)

	recorder := env.do(testContext, http.MethodPost, "/auth/telegram", "", profile)
	require.Equal(testContext, http.StatusOK, recorder.Code, recorder.Body.String())

	var response telegramLoginResponse
	require.NoError(testContext, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.NotEmpty(testContext, response.AccessToken)
	return response.AccessToken, response.User
}

// adminToken promotes the account and issues a token that carries the flag.
func (env *testEnv) adminToken(testContext *testing.T, telegramID int64, username string) string {
	testContext.Helper()
	_, user := env.login(testContext, telegramID, username)
	promoted, err := env.users.SetAdmin(context.Background(), user.ID, true)
	require.NoError(testContext, err)

	token, _, err := env.tokens.IssueBackendToken(context.Background(), auth.Principal{
		UserID:   promoted.ID,
		Username: promoted.Username,
		IsAdmin:  true,
	})
	require.NoError(testContext, err)
	return token
}

func (env *testEnv) seedBlock(testContext *testing.T, blockKey, content string) review.ContentBlock {
	testContext.Helper()
	block := review.ContentBlock{
		ID:           "block-" + blockKey,
		BlockType:    review.BlockTypeParagraph,
		BlockKey:     blockKey,
		DisplayOrder: 1,
		Content:      content,
		IsActive:     true,
		CreatedAt:    testClockNow,
		UpdatedAt:    testClockNow,
	}
	require.NoError(testContext, env.db.Create(&block).Error)
	return block
}

func TestTelegramLoginIssuesWorkingToken(testContext *testing.T) {
	env := newTestEnv(testContext)

	token, user := env.login(testContext, 777, "ada")
	assert.Equal(testContext, "ada", user.Username)
	assert.False(testContext, user.IsAdmin)
	assert.True(testContext, user.IsVerified)

	recorder := env.do(testContext, http.MethodGet, "/auth/me", token, nil)
	require.Equal(testContext, http.StatusOK, recorder.Code)

	var me userPayload
	require.NoError(testContext, json.Unmarshal(recorder.Body.Bytes(), &me))
	assert.Equal(testContext, user.ID, me.ID)
}

func TestTelegramLoginRejectsTamperedPayload(testContext *testing.T) {
	env := newTestEnv(testContext)

	profile := auth.TelegramProfile{
		ID:        777,
		FirstName: "Ada",
		Username:  "ada",
		AuthDate:  testClockNow.Add(-time.Minute).Unix(),
	}
	profile.Hash = signProfile(profile)
	profile.Username = "mallory"

	recorder := env.do(testContext, http.MethodPost, "/auth/telegram", "", profile)
	assert.Equal(testContext, http.StatusUnauthorized, recorder.Code)
}

func TestTelegramLoginRequiresIDAndHash(testContext *testing.T) {
	env := newTestEnv(testContext)

	recorder := env.do(testContext, http.MethodPost, "/auth/telegram", "", map[string]any{"first_name": "Ada"})
	assert.Equal(testContext, http.StatusBadRequest, recorder.Code)
}

func TestProtectedRoutesRejectMissingOrBadToken(testContext *testing.T) {
	env := newTestEnv(testContext)

	recorder := env.do(testContext, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(testContext, http.StatusUnauthorized, recorder.Code)

	recorder = env.do(testContext, http.MethodGet, "/auth/me", "not-a-token", nil)
	assert.Equal(testContext, http.StatusUnauthorized, recorder.Code)
}

func TestAnnotationListingsRequireAuthentication(testContext *testing.T) {
	env := newTestEnv(testContext)

	recorder := env.do(testContext, http.MethodGet, "/about/comments", "", nil)
	assert.Equal(testContext, http.StatusUnauthorized, recorder.Code)

	recorder = env.do(testContext, http.MethodGet, "/about/suggestions", "", nil)
	assert.Equal(testContext, http.StatusUnauthorized, recorder.Code)

	recorder = env.do(testContext, http.MethodGet, "/about/suggestions?status=accepted", "", nil)
	assert.Equal(testContext, http.StatusUnauthorized, recorder.Code)
}

func TestAdminRoutesRejectRegularMembers(testContext *testing.T) {
	env := newTestEnv(testContext)
	token, _ := env.login(testContext, 777, "ada")

	recorder := env.do(testContext, http.MethodGet, "/about/pending-review", token, nil)
	assert.Equal(testContext, http.StatusForbidden, recorder.Code)

	recorder = env.do(testContext, http.MethodPut, "/about/content/some-block", token, map[string]any{"content": "x"})
	assert.Equal(testContext, http.StatusForbidden, recorder.Code)
}

func TestSuggestionReviewFlowOverHTTP(testContext *testing.T) {
	env := newTestEnv(testContext)
	block := env.seedBlock(testContext, "about-mission", "<p>Hello world</p>")

	memberToken, _ := env.login(testContext, 100, "ada")
	adminToken := env.adminToken(testContext, 200, "steward")

	recorder := env.do(testContext, http.MethodPost, "/about/suggestions", memberToken, map[string]any{
		"block_id":       block.ID,
		"start_offset":   0,
		"end_offset":     5,
		"original_text":  "Hello",
		"suggested_text": "Greetings",
	})
	require.Equal(testContext, http.StatusCreated, recorder.Code, recorder.Body.String())

	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(testContext, json.Unmarshal(recorder.Body.Bytes(), &created))
	assert.Equal(testContext, string(review.SuggestionStatusPending), created.Status)

	// Members cannot accept suggestions.
	recorder = env.do(testContext, http.MethodPost, "/about/suggestions/"+created.ID+"/accept", memberToken, nil)
	assert.Equal(testContext, http.StatusForbidden, recorder.Code)

	recorder = env.do(testContext, http.MethodPost, "/about/suggestions/"+created.ID+"/accept", adminToken, map[string]any{"note": "good catch"})
	require.Equal(testContext, http.StatusOK, recorder.Code, recorder.Body.String())

	// The block text now carries the replacement.
	recorder = env.do(testContext, http.MethodGet, "/about/content", "", nil)
	require.Equal(testContext, http.StatusOK, recorder.Code)
	assert.Contains(testContext, recorder.Body.String(), "Greetings world")

	// Accepting again conflicts.
	recorder = env.do(testContext, http.MethodPost, "/about/suggestions/"+created.ID+"/accept", adminToken, nil)
	assert.Equal(testContext, http.StatusConflict, recorder.Code)
}

func TestCommentFlowOverHTTP(testContext *testing.T) {
	env := newTestEnv(testContext)
	block := env.seedBlock(testContext, "about-mission", "<p>Hello world</p>")

	memberToken, _ := env.login(testContext, 100, "ada")

	// Anonymous visitors cannot comment.
	recorder := env.do(testContext, http.MethodPost, "/about/comments", "", map[string]any{
		"block_id": block.ID, "start_offset": 0, "end_offset": 5, "selected_text": "Hello", "content": "typo?",
	})
	assert.Equal(testContext, http.StatusUnauthorized, recorder.Code)

	recorder = env.do(testContext, http.MethodPost, "/about/comments", memberToken, map[string]any{
		"block_id": block.ID, "start_offset": 0, "end_offset": 5, "selected_text": "Hello", "content": "typo?",
	})
	require.Equal(testContext, http.StatusCreated, recorder.Code, recorder.Body.String())

	var created struct {
		ID             string `json:"id"`
		AuthorUsername string `json:"author_username"`
	}
	require.NoError(testContext, json.Unmarshal(recorder.Body.Bytes(), &created))
	assert.Equal(testContext, "ada", created.AuthorUsername)

	// Inverted ranges are rejected.
	recorder = env.do(testContext, http.MethodPost, "/about/comments", memberToken, map[string]any{
		"block_id": block.ID, "start_offset": 5, "end_offset": 2, "selected_text": "x", "content": "bad range",
	})
	assert.Equal(testContext, http.StatusBadRequest, recorder.Code)

	recorder = env.do(testContext, http.MethodGet, "/about/comments?block_id="+block.ID, memberToken, nil)
	require.Equal(testContext, http.StatusOK, recorder.Code)
	assert.Contains(testContext, recorder.Body.String(), created.ID)
}

func TestOptionalServiceRoutesStayUnmounted(testContext *testing.T) {
	env := newTestEnv(testContext)

	recorder := env.do(testContext, http.MethodGet, "/forum/categories", "", nil)
	assert.Equal(testContext, http.StatusNotFound, recorder.Code)

	recorder = env.do(testContext, http.MethodGet, "/map/stats", "", nil)
	assert.Equal(testContext, http.StatusNotFound, recorder.Code)
}
