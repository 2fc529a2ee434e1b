package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	. "github.com/trezcool/mentora/apps/api/echo"
	"github.com/trezcool/mentora/core"
	"github.com/trezcool/mentora/core/duel"
	"github.com/trezcool/mentora/core/guard"
	"github.com/trezcool/mentora/core/student"
	"github.com/trezcool/mentora/services/logger"
	"github.com/trezcool/mentora/services/metrics"
	"github.com/trezcool/mentora/storage/database/inmem"
	"github.com/trezcool/mentora/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type fixture struct {
	app      Server
	conf     *core.Config
	clock    *testutil.Clock
	students student.Repository
	notifier *testutil.Notifier
}

func setup(t *testing.T, questions int) fixture {
	t.Helper()
	conf := &core.Config{
		AppName:   "Mentora",
		TestMode:  true,
		SecretKey: "test-secret",
		Server:    core.ServerConfig{JWTExpirationDelta: time.Hour},
		Duel:      testutil.DuelConfig(),
		Guard:     testutil.GuardConfig(),
	}

	// set up DB & repos
	db, err := inmemdb.Open()
	require.NoError(t, err)
	students := inmemdb.NewStudentRepository(db)
	qb := inmemdb.NewQuestionBank(db)
	qb.AddQuestions("math", testutil.Questions(questions)...)

	// set up services
	clock := testutil.NewClock()
	logger := logsvc.NewConsoleLogger(io.Discard, false)
	mtr := metrics.New()
	g := guard.New(guard.Options{Conf: conf.Guard, Logger: logger, Observer: mtr, Now: clock.Now})
	studentSvc := student.NewService(students, g)
	notifier := new(testutil.Notifier)
	duelSvc := duel.NewService(duel.Deps{
		Repo:      inmemdb.NewDuelRepository(db),
		Stats:     inmemdb.NewStatsRepository(db),
		Questions: qb,
		Students:  studentSvc,
		Guard:     g,
		Notifier:  notifier,
		Observer:  mtr,
		Logger:    logger,
		Conf:      conf.Duel,
		Now:       clock.Now,
	})
	validate, translator := core.NewValidator()

	// set up server
	app := NewServer(&Options{
		DisableReqLogs: true,
		Conf:           conf,
		Logger:         logger,
		DuelSvc:        duelSvc,
		StudentSvc:     studentSvc,
		Guard:          g,
		Metrics:        mtr,
		Validate:       validate,
		Translator:     translator,
	})

	testutil.CreateVerifiedStudent(t, students, "alice", clock.Now())
	testutil.CreateVerifiedStudent(t, students, "bob", clock.Now())
	return fixture{app: app, conf: conf, clock: clock, students: students, notifier: notifier}
}

func (f fixture) token(t *testing.T, studentID string) string {
	t.Helper()
	token, err := GenerateToken(NewClaims(studentID, f.conf), f.conf.SecretKey)
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

// do sends the request to the app and returns the recorded response.
func (f fixture) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	f.app.ServeHTTP(rec, req)
	return rec
}

// startDuel has alice challenge bob, who accepts.
func (f fixture) startDuel(t *testing.T, questions int) duel.Duel {
	t.Helper()
	rec := f.do(http.MethodPost, "/v1/duels/requests", f.token(t, "alice"),
		marchallObj(t, map[string]interface{}{"opponentId": "bob", "subject": "math", "questionCount": questions}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var req duel.Request
	decode(t, rec, &req)

	rec = f.do(http.MethodPost, "/v1/duels/requests/"+req.ID+"/respond", f.token(t, "bob"), []byte(`{"accept": true}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var d duel.Duel
	decode(t, rec, &d)
	return d
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
