package testing

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// RecordedRequest is what [FakeAPI] saw of one request.
type RecordedRequest struct {
	Method      string
	Path        string
	Access      string
	HasAccess   bool
	Refresh     string
	ContentType string
	FileName    string
	FileType    string
	FileSize    int64
}

// FakeAPI is an in-process analysis service with the same endpoints, headers and
// cookies as the real one. Access tokens are "access-N", refresh tokens "refresh-N".
type FakeAPI struct {
	Server *httptest.Server

	mu       sync.Mutex
	seq      int
	users    map[string]string
	access   map[string]bool
	refresh  map[string]string // refresh token -> username
	requests []RecordedRequest
	counts   map[string]int
	behavior Behavior
}

// Behavior overrides how [FakeAPI] answers; zero values keep the normal behavior.
type Behavior struct {
	ReissueStatus int
	LogoutStatus  int
	UploadStatus  int
	UploadBody    string
	RejectAll     bool          // protected endpoints always answer 401
	ReissueDelay  time.Duration // held before answering /reissue
	SecureCookie  bool

	UploadScore    float64
	UploadFeedback string
}

// Configure changes the behavior of the server.
func (f *FakeAPI) Configure(fn func(b *Behavior)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.behavior)
}

func (f *FakeAPI) current() Behavior {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.behavior
}

// NewFakeAPI starts a FakeAPI. It is closed with the test.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		users:   make(map[string]string),
		access:  make(map[string]bool),
		refresh: make(map[string]string),
		counts:  make(map[string]int),
		behavior: Behavior{
			UploadScore:    87.5,
			UploadFeedback: "무릎이 발끝을 넘지 않도록 주의하세요.",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", f.login)
	mux.HandleFunc("POST /api/join", f.join)
	mux.HandleFunc("POST /api/logout", f.logout)
	mux.HandleFunc("POST /api/reissue", f.reissue)
	mux.HandleFunc("POST /api/upload", f.upload)
	mux.HandleFunc("GET /api/me", f.me)

	f.Server = httptest.NewServer(f.record(mux))
	t.Cleanup(f.Server.Close)
	return f
}

// BaseURL is the API base including the /api prefix.
func (f *FakeAPI) BaseURL() string { return f.Server.URL + "/api" }

// Host is the host:port of the server, the scope used for stored credentials.
func (f *FakeAPI) Host() string { return f.Server.Listener.Addr().String() }

// AddUser registers a user directly.
func (f *FakeAPI) AddUser(username, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[username] = password
}

// IssueAccess creates a valid access token.
func (f *FakeAPI) IssueAccess() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issueAccessLocked()
}

// IssueRefresh creates a valid refresh token for username.
func (f *FakeAPI) IssueRefresh(username string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issueRefreshLocked(username)
}

// Revoke invalidates an access token, as expiry would.
func (f *FakeAPI) Revoke(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.access, token)
}

// Count returns how many requests hit path (without the /api prefix).
func (f *FakeAPI) Count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[path]
}

// Requests returns the recorded requests in arrival order.
func (f *FakeAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// Last returns the last recorded request for path.
func (f *FakeAPI) Last(path string) (RecordedRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].Path == path {
			return f.requests[i], true
		}
	}
	return RecordedRequest{}, false
}

func (f *FakeAPI) issueAccessLocked() string {
	f.seq++
	token := fmt.Sprintf("access-%d", f.seq)
	f.access[token] = true
	return token
}

func (f *FakeAPI) issueRefreshLocked(username string) string {
	f.seq++
	token := fmt.Sprintf("refresh-%d", f.seq)
	f.refresh[token] = username
	return token
}

func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if len(path) > 4 && path[:4] == "/api" {
			path = path[4:]
		}

		rec := RecordedRequest{
			Method:      r.Method,
			Path:        path,
			ContentType: r.Header.Get("Content-Type"),
		}
		if v, ok := r.Header["Access"]; ok && len(v) > 0 {
			rec.Access, rec.HasAccess = v[0], true
		}
		if c, err := r.Cookie("refresh"); err == nil {
			rec.Refresh = c.Value
		}

		if r.Method == http.MethodPost && path == "/upload" {
			if file, header, err := r.FormFile("upload"); err == nil {
				n, _ := io.Copy(io.Discard, file)
				file.Close()
				rec.FileName = header.Filename
				rec.FileType = header.Header.Get("Content-Type")
				rec.FileSize = n
			}
		}

		f.mu.Lock()
		f.requests = append(f.requests, rec)
		f.counts[path]++
		f.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) setRefreshCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     "refresh",
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   f.current().SecureCookie,
	})
}

func (f *FakeAPI) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.behavior.RejectAll && f.access[r.Header.Get("access")]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	password, ok := f.users[body.Username]
	if !ok || password != body.Password {
		f.mu.Unlock()
		w.Header().Set("error", "Bad credentials")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	access := f.issueAccessLocked()
	refresh := f.issueRefreshLocked(body.Username)
	f.mu.Unlock()

	w.Header().Set("access", access)
	f.setRefreshCookie(w, refresh, 30*24*60*60)
	w.WriteHeader(http.StatusOK)
}

func (f *FakeAPI) join(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
		RealName string `json:"realName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[body.Username]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "이미 존재하는 아이디입니다."})
		return
	}
	f.users[body.Username] = body.Password
	writeJSON(w, http.StatusOK, map[string]string{"message": "회원가입이 완료되었습니다."})
}

func (f *FakeAPI) logout(w http.ResponseWriter, r *http.Request) {
	if status := f.current().LogoutStatus; status != 0 {
		w.WriteHeader(status)
		return
	}
	if c, err := r.Cookie("refresh"); err == nil {
		f.mu.Lock()
		delete(f.refresh, c.Value)
		f.mu.Unlock()
	}
	f.setRefreshCookie(w, "", -1)
	w.WriteHeader(http.StatusOK)
}

func (f *FakeAPI) reissue(w http.ResponseWriter, r *http.Request) {
	b := f.current()
	if b.ReissueDelay > 0 {
		time.Sleep(b.ReissueDelay)
	}
	if b.ReissueStatus != 0 {
		w.WriteHeader(b.ReissueStatus)
		return
	}

	c, err := r.Cookie("refresh")
	if err != nil {
		http.Error(w, "refresh token is null", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	username, ok := f.refresh[c.Value]
	if !ok {
		f.mu.Unlock()
		http.Error(w, "invalid refresh token", http.StatusBadRequest)
		return
	}
	delete(f.refresh, c.Value)
	access := f.issueAccessLocked()
	refresh := f.issueRefreshLocked(username)
	f.mu.Unlock()

	w.Header().Set("access", access)
	f.setRefreshCookie(w, refresh, 30*24*60*60)
	w.WriteHeader(http.StatusOK)
}

func (f *FakeAPI) upload(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	b := f.current()
	if b.UploadStatus != 0 {
		w.WriteHeader(b.UploadStatus)
		io.WriteString(w, b.UploadBody)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"score": b.UploadScore, "feedBack": b.UploadFeedback})
}

func (f *FakeAPI) me(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
