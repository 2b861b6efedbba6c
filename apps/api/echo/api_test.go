package echoapi

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richyfesta/arnoma/core"
	"github.com/richyfesta/arnoma/core/attendance"
	"github.com/richyfesta/arnoma/core/automation"
	"github.com/richyfesta/arnoma/core/payment"
	"github.com/richyfesta/arnoma/core/student"
	dummydb "github.com/richyfesta/arnoma/storage/database/dummy"
	"github.com/richyfesta/arnoma/tests"
)

var testLoc, _ = time.LoadLocation("America/Los_Angeles")

func testConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		TestMode:         true,
		AppName:          "Arnoma",
		SecretKey:        []byte("secret"),
		BusinessTimezone: testLoc,
		Server:           core.ServerConfig{JWTExpirationDelta: 10 * time.Minute},
	}
}

type testApp struct {
	server Server
	conf   *core.Config
	db     *dummydb.DB
	pause  automation.PauseRegistry
}

func initApp(t *testing.T) *testApp {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)

	conf := testConfig()
	logger := core.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))

	studentSvc := student.NewService(dummydb.NewStudentRepository(db))
	ledgerSvc := attendance.NewService(dummydb.NewAttendanceRepository(db), dummydb.NewStudentRepository(db))
	paymentSvc := payment.NewService(dummydb.NewPaymentRepository(db))
	pause := dummydb.NewPauseRegistry(db)

	server := NewServer(&Options{
		Address:        ":0",
		DisableReqLogs: true,
		Conf:           conf,
		Logger:         logger,
		StudentSvc:     studentSvc,
		LedgerSvc:      ledgerSvc,
		PaymentSvc:     paymentSvc,
		Matcher:        payment.NewMatcher(paymentSvc, studentSvc, ledgerSvc, logger, testLoc),
		RuleRepo:       dummydb.NewRuleRepository(db),
		Pause:          pause,
	})
	return &testApp{server: server, conf: conf, db: db, pause: pause}
}

func (app *testApp) token(t *testing.T) string {
	t.Helper()
	token, err := GenerateToken(GetOperatorClaims(app.conf, "tester"))
	require.NoError(t, err)
	return token
}

func (app *testApp) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func TestAPI_RequiresToken(t *testing.T) {
	app := initApp(t)

	rec := app.request(t, http.MethodGet, "/v1/students", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.request(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_PauseToggle(t *testing.T) {
	app := initApp(t)
	token := app.token(t)
	stu := testutil.CreateStudent(t, dummydb.NewStudentRepository(app.db),
		"Anna Petrosyan", "anna@example.com", "Mon/Wed", nil, student.StatusActive)

	rec := app.request(t, http.MethodGet, "/v1/students/"+stu.ID+"/pause", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got pauseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.Paused)

	paused := true
	rec = app.request(t, http.MethodPut, "/v1/students/"+stu.ID+"/pause", token, pauseRequest{Paused: &paused})
	require.Equal(t, http.StatusOK, rec.Code)

	isPaused, err := app.pause.IsPaused(stu.ID)
	require.NoError(t, err)
	assert.True(t, isPaused)

	// missing paused field is a validation error
	rec = app.request(t, http.MethodPut, "/v1/students/"+stu.ID+"/pause", token, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unknown student is a 404
	rec = app.request(t, http.MethodPut, "/v1/students/nope/pause", token, pauseRequest{Paused: &paused})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_AttendanceStatus(t *testing.T) {
	app := initApp(t)
	token := app.token(t)
	stu := testutil.CreateStudent(t, dummydb.NewStudentRepository(app.db),
		"Anna Petrosyan", "anna@example.com", "Mon/Wed", nil, student.StatusActive)
	testutil.CreateRecord(t, dummydb.NewAttendanceRepository(app.db),
		stu.ID, testutil.Date(2025, time.November, 13), attendance.StatusUnpaid, 50)

	rec := app.request(t, http.MethodGet, "/v1/students/"+stu.ID+"/attendance/2025-11-13", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"unpaid"}`, rec.Body.String())

	rec = app.request(t, http.MethodGet, "/v1/students/"+stu.ID+"/attendance/2025-11-14", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.request(t, http.MethodGet, "/v1/students/"+stu.ID+"/attendance/not-a-date", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_OverdueListing(t *testing.T) {
	app := initApp(t)
	token := app.token(t)
	stuRepo := dummydb.NewStudentRepository(app.db)
	attRepo := dummydb.NewAttendanceRepository(app.db)

	stu := testutil.CreateStudent(t, stuRepo, "Mariam Gevorgyan", "mariam@example.com", "Tue/Thu", nil, student.StatusActive)
	old := attendance.DateOf(time.Now().AddDate(0, 0, -16), testLoc)
	testutil.CreateRecord(t, attRepo, stu.ID, old, attendance.StatusUnpaid, 50)
	future := attendance.DateOf(time.Now().AddDate(0, 0, 7), testLoc)
	testutil.CreateRecord(t, attRepo, stu.ID, future, attendance.StatusUnpaid, 50)

	rec := app.request(t, http.MethodGet, "/v1/attendance/overdue", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []overdueEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, stu.ID, entries[0].StudentID)
	assert.Equal(t, "Mariam Gevorgyan", entries[0].StudentName)
	assert.Equal(t, old.Format("2006-01-02"), entries[0].Date)
}

func TestAPI_PaymentLifecycle(t *testing.T) {
	app := initApp(t)
	token := app.token(t)
	stuRepo := dummydb.NewStudentRepository(app.db)
	stu := testutil.CreateStudent(t, stuRepo, "Mariam Gevorgyan", "mariam@example.com", "Tue/Thu", nil, student.StatusActive)

	// manual entry with an unknown payer name
	rec := app.request(t, http.MethodPost, "/v1/payments", token, payment.NewEvent{
		Amount:       50,
		PayerNameRaw: "M. Gevorgian",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var evt payment.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &evt))

	// it shows up unlinked, with a near-miss suggestion
	rec = app.request(t, http.MethodGet, "/v1/payments/unlinked", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var unlinked []unlinkedPayment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &unlinked))
	require.Len(t, unlinked, 1)

	// manual link
	rec = app.request(t, http.MethodPost, "/v1/payments/"+evt.ID+"/link", token, linkRequest{StudentID: stu.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	var linked payment.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &linked))
	assert.True(t, linked.ManuallyLinked)
	assert.Equal(t, stu.ID, linked.LinkedStudentID.String)

	rec = app.request(t, http.MethodGet, "/v1/payments/unlinked", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &unlinked))
	assert.Len(t, unlinked, 0)

	// invalid payloads are rejected
	rec = app.request(t, http.MethodPost, "/v1/payments", token, payment.NewEvent{Amount: -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = app.request(t, http.MethodPost, "/v1/payments/"+evt.ID+"/link", token, linkRequest{StudentID: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_Rules(t *testing.T) {
	app := initApp(t)
	token := app.token(t)

	rec := app.request(t, http.MethodPost, "/v1/rules", token, automation.NewRule{
		Name:          "class-reminder",
		Active:        true,
		Frequency:     automation.FrequencyBeforeClass,
		OffsetMinutes: 30,
		TemplateName:  "class_reminder",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = app.request(t, http.MethodGet, "/v1/rules/class-reminder", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// bad frequency is a validation error
	rec = app.request(t, http.MethodPost, "/v1/rules", token, automation.NewRule{
		Name:         "bogus",
		Frequency:    "hourly",
		TemplateName: "x",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
