package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/section"
	"github.com/trezcool/darasa/core/subject"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

var (
	conf = testutil.NewConfig()

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func init() {
	conf.Debug = false // keep error payloads in their production shape
}

type testDeps struct {
	server  *Server
	secRepo section.Repository
	subRepo subject.Repository
}

func setup(t *testing.T) testDeps {
	t.Helper()

	// set up DB & repos
	db := inmemdb.NewDB()
	secRepo := inmemdb.NewSectionRepository(db)
	subRepo := inmemdb.NewSubjectRepository(db)

	// set up services
	logger := testutil.NewLogger(conf)
	secSvc := section.NewService(secRepo, subject.NewCommitmentSource(subRepo), logger, conf)
	enrollSvc := section.NewCoordinator(secRepo, logger, conf)
	subSvc := subject.NewService(subRepo, secRepo, logger, conf)

	// set up server
	server := NewServer(
		ServerDeps{
			Conf:       conf,
			Logger:     logger,
			SectionSvc: secSvc,
			EnrollSvc:  enrollSvc,
			SubjectSvc: subSvc,
		},
	)
	return testDeps{server: server, secRepo: secRepo, subRepo: subRepo}
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
	extra    interface{}
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

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, actor core.Actor) string {
	claims := GetActorClaims(conf, actor)
	token, err := GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func adminToken(t *testing.T) string {
	return getToken(t, core.Actor{ID: "adm-1", Name: "Admin", Roles: []string{core.RoleAdmin}})
}

func studentToken(t *testing.T, id string) string {
	return getToken(t, core.Actor{ID: id, Name: id, Roles: []string{core.RoleStudent}})
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
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
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decodeSection(t *testing.T, rec *httptest.ResponseRecorder) section.Section {
	var sec section.Section
	if err := json.Unmarshal(rec.Body.Bytes(), &sec); err != nil {
		t.Fatalf("decodeSection(): %v: %s", err, rec.Body.String())
	}
	return sec
}

func decodeSubject(t *testing.T, rec *httptest.ResponseRecorder) subject.Subject {
	var sub subject.Subject
	if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
		t.Fatalf("decodeSubject(): %v: %s", err, rec.Body.String())
	}
	return sub
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	assert.Equal(t, want, rec.Code, rec.Body.String())
}
