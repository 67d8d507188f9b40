package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteAndReadAndClearRoundTrip(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/pl/basket/toggle", nil)
	writeRR := httptest.NewRecorder()

	Write(writeRR, req, Success("OurServices.addedToBasket").WithAction("OurServices.goToBasket", "/pl/basket"))
	cookie, err := http.ParseSetCookie(writeRR.Header().Get("Set-Cookie"))
	require.NoError(t, err)
	require.True(t, cookie.HttpOnly)

	next := httptest.NewRequest(http.MethodGet, "/pl/", nil)
	next.AddCookie(cookie)
	readRR := httptest.NewRecorder()

	notice, ok := ReadAndClear(readRR, next)
	require.True(t, ok)
	require.Equal(t, KindSuccess, notice.Kind)
	require.Equal(t, "OurServices.addedToBasket", notice.Key)
	require.True(t, notice.HasAction())
	require.Equal(t, "/pl/basket", notice.ActionHref)

	cleared, err := http.ParseSetCookie(readRR.Header().Get("Set-Cookie"))
	require.NoError(t, err)
	require.Equal(t, CookieName, cleared.Name)
	require.Equal(t, -1, cleared.MaxAge)
}

func TestReadAndClearInvalidCookieValueStillClears(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/en/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "not-base64!"})
	rr := httptest.NewRecorder()

	_, ok := ReadAndClear(rr, req)
	require.False(t, ok)
	require.NotEmpty(t, rr.Header().Get("Set-Cookie"))
}

func TestReadWithoutCookie(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	_, ok := ReadAndClear(rr, httptest.NewRequest(http.MethodGet, "/en/", nil))
	require.False(t, ok)
	require.Empty(t, rr.Header().Get("Set-Cookie"))
}

func TestWriteIgnoresInvalidNotice(t *testing.T) {
	t.Parallel()

	testCases := []Notice{
		{Kind: KindSuccess},
		{Kind: "celebration", Key: "OurServices.addedToBasket"},
	}
	for _, notice := range testCases {
		rr := httptest.NewRecorder()
		Write(rr, httptest.NewRequest(http.MethodPost, "/", nil), notice)
		require.Empty(t, rr.Header().Get("Set-Cookie"))
	}
}

func TestForeignActionIsDropped(t *testing.T) {
	t.Parallel()

	for _, href := range []string{"https://evil.example/", "//evil.example/", `/\evil.example`, "basket"} {
		notice, ok := normalizeNotice(Success("OurServices.addedToBasket").WithAction("OurServices.goToBasket", href))
		require.True(t, ok)
		require.False(t, notice.HasAction(), href)
	}
}

func TestReadLeavesNoticePending(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	Write(rr, httptest.NewRequest(http.MethodPost, "/en/basket/toggle", nil), Success("OurServices.addedToBasket"))
	cookie, err := http.ParseSetCookie(rr.Header().Get("Set-Cookie"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/en/", nil)
	req.AddCookie(cookie)

	notice, ok := Read(req)
	require.True(t, ok)
	require.Equal(t, "OurServices.addedToBasket", notice.Key)

	again, ok := Read(req)
	require.True(t, ok)
	require.Equal(t, notice, again)

	_, ok = Read(nil)
	require.False(t, ok)
}

func TestIsLocalPath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		href string
		want bool
	}{
		{"/", true},
		{"/en/", true},
		{"/pl/basket?from=card#services", true},
		{"/ua/%2F%2Fevil.example", true},
		{"", false},
		{"basket", false},
		{"//x", false},
		{`/\x`, false},
		{"/\t/x", false},
		{"/\t/evil.example", false},
		{"/\n/x", false},
		{"/\r\n//x", false},
		{"/\x00x", false},
		{"/\x7f/x", false},
		{"https://evil.example/", false},
		{"/%zz", false},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.want, IsLocalPath(tc.href), "%q", tc.href)
	}
}
