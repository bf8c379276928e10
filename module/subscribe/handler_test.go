package subscribe

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"PPanel/module/account/model"

	"github.com/gin-gonic/gin"
)

func setupRouter(st *fakeStore, log *fakeLog) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(newServiceUnderTest(st, log), ListRenderer{})
	r := gin.New()
	r.GET("/sub/:token", h.Fetch)
	return r
}

func doGet(r *gin.Engine, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	req.Header.Set("X-Device-Fingerprint", "dev-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerUnknownTokenForbidden(t *testing.T) {
	r := setupRouter(newFakeStore(), newFakeLog())

	w := doGet(r, "/sub/no-such-token", "1.2.3.4:5000")
	if w.Code != http.StatusForbidden {
		t.Fatalf("unknown token must map to 403, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "SubscriptionNotFound") {
		t.Fatalf("expected SubscriptionNotFound msg, got %s", w.Body.String())
	}
}

func TestHandlerLifecycleClassForbidden(t *testing.T) {
	st := newFakeStore()
	acct := testAccount("u1")
	acct.Token = "tok"
	acct.Status = model.StatusExpired
	st.put(acct)

	r := setupRouter(st, newFakeLog())
	if w := doGet(r, "/sub/tok", "1.2.3.4:5000"); w.Code != http.StatusForbidden {
		t.Fatalf("expired subscription must map to 403, got %d", w.Code)
	}
}

func TestHandlerNoEndpointsNotFound(t *testing.T) {
	st := newFakeStore()
	acct := testAccount("u1")
	acct.Token = "tok"
	acct.ExpireTime = time.Now().Add(time.Hour)
	st.put(acct)
	// 没有任何指派：配置缺口，404 专属于它

	r := setupRouter(st, newFakeLog())
	if w := doGet(r, "/sub/tok", "1.2.3.4:5000"); w.Code != http.StatusNotFound {
		t.Fatalf("no active endpoints must map to 404, got %d", w.Code)
	}
}

func TestHandlerRejectionHidesDetail(t *testing.T) {
	st := newFakeStore()
	acct := testAccount("account-secret-42")
	acct.Token = "tok"
	acct.ExpireTime = time.Now().Add(time.Hour)
	acct.IPLimit = 1
	st.put(acct)
	st.direct["account-secret-42"] = []model.Assignment{assignment("ep-a", 10)}

	log := newFakeLog()
	log.recent.Addresses["9.9.9.9"] = struct{}{} // 槽位已被占满

	r := setupRouter(st, log)
	w := doGet(r, "/sub/tok", "1.2.3.4:5000")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("ip ceiling must map to 429, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "IpLimitExceeded") {
		t.Fatalf("expected bare IpLimitExceeded msg, got %s", body)
	}
	// Detail 里的账号/地址上下文不许出网
	for _, leak := range []string{"account-secret-42", "9.9.9.9", "1.2.3.4"} {
		if strings.Contains(body, leak) {
			t.Fatalf("client response leaks %q: %s", leak, body)
		}
	}
}
