package httphandler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gaze-network/ord-indexer/common"
	"github.com/gaze-network/ord-indexer/modules/ord/internal/ordtest"
	"github.com/gaze-network/ord-indexer/modules/ord/usecase"
	"github.com/gaze-network/ord-indexer/pkg/errorhandler"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: errorhandler.NewHTTPErrorHandler()})
	handler := New(common.NetworkRegtest, usecase.New(ordtest.NewRepository(t), common.NetworkRegtest, true))
	require.NoError(t, handler.Mount(app))
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, body
}

func get(t *testing.T, app *fiber.App, path string) (int, map[string]any) {
	t.Helper()
	resp, body := do(t, app, httptest.NewRequest(http.MethodGet, path, nil))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded), string(body))
	return resp.StatusCode, decoded
}

func result(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	result, ok := body["result"].(map[string]any)
	require.True(t, ok, "response has no result object: %v", body)
	return result
}

func TestStatus(t *testing.T) {
	app := newTestApp(t)
	resp, body := do(t, app, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestContent(t *testing.T) {
	app := newTestApp(t)

	t.Run("served_sandboxed", func(t *testing.T) {
		resp, body := do(t, app, httptest.NewRequest(http.MethodGet, "/content/"+ordtest.Inscription.String(), nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/plain;charset=utf-8", resp.Header.Get("Content-Type"))
		assert.Equal(t, "default-src 'unsafe-eval' 'unsafe-inline'", resp.Header.Get("Content-Security-Policy"))
		assert.Equal(t, ordtest.Content, body)
	})
	t.Run("delegate", func(t *testing.T) {
		resp, body := do(t, app, httptest.NewRequest(http.MethodGet, "/content/"+ordtest.Delegating.String(), nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, ordtest.Content, body)
	})
	t.Run("invalid_id", func(t *testing.T) {
		status, _ := get(t, app, "/content/nope")
		assert.Equal(t, http.StatusBadRequest, status)
	})
	t.Run("unknown", func(t *testing.T) {
		status, _ := get(t, app, "/content/"+strings.Repeat("ab", 32)+"i0")
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestBlock(t *testing.T) {
	app := newTestApp(t)

	status, body := get(t, app, "/v1/blockheight")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, result(t, body)["height"])
	assert.Equal(t, ordtest.BlockHash.String(), result(t, body)["hash"])

	status, body = get(t, app, "/v1/blockhash/0")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, ordtest.BlockHash.String(), body["result"])

	status, _ = get(t, app, "/v1/blockhash/5")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = get(t, app, "/v1/blockhash/abc")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestInscription(t *testing.T) {
	app := newTestApp(t)

	status, body := get(t, app, "/v1/inscription/"+ordtest.Inscription.String())
	require.Equal(t, http.StatusOK, status)
	inscription := result(t, body)
	assert.Equal(t, ordtest.Inscription.String(), inscription["id"])
	assert.Equal(t, ordtest.InscribedOutput.String()+":0", inscription["satpoint"])
	assert.Equal(t, ordtest.InscribedOutput.String(), inscription["output"])
	assert.EqualValues(t, ordtest.InscribedValue, inscription["value"])
	assert.EqualValues(t, len(ordtest.Content), inscription["contentLength"])
	assert.Contains(t, inscription["address"], "bcrt1q")

	status, body = get(t, app, "/v1/inscription/"+ordtest.Delegating.String())
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, result(t, body)["value"])
	assert.Equal(t, []any{"unbound"}, result(t, body)["charms"])
}

func TestInscriptions(t *testing.T) {
	app := newTestApp(t)

	status, body := get(t, app, "/v1/inscriptions?limit=1")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{ordtest.Delegating.String()}, result(t, body)["ids"])
	assert.Equal(t, true, result(t, body)["more"])

	status, body = get(t, app, "/v1/inscriptions?limit=1&page=1")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{ordtest.Inscription.String()}, result(t, body)["ids"])
	assert.Equal(t, false, result(t, body)["more"])

	status, _ = get(t, app, "/v1/inscriptions?limit=1000")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestOutput(t *testing.T) {
	app := newTestApp(t)

	status, body := get(t, app, "/v1/output/"+ordtest.RunicOutput.String())
	require.Equal(t, http.StatusOK, status)
	output := result(t, body)
	assert.EqualValues(t, ordtest.RunicValue, output["value"])
	assert.Equal(t, false, output["spent"])
	runes, ok := output["runes"].([]any)
	require.True(t, ok)
	require.Len(t, runes, 1)
	balance := runes[0].(map[string]any)
	assert.Equal(t, "TEST•RUNE", balance["name"])
	assert.Equal(t, "10", balance["decimal"])
	assert.Equal(t, "¢", balance["symbol"])

	status, _ = get(t, app, "/v1/output/garbage")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSat(t *testing.T) {
	app := newTestApp(t)

	status, body := get(t, app, "/v1/sat/0")
	require.Equal(t, http.StatusOK, status)
	sat := result(t, body)
	assert.Equal(t, "mythic", sat["rarity"])
	assert.Equal(t, "0.0", sat["decimal"])
	assert.Equal(t, ordtest.InscribedOutput.String()+":0", sat["satpoint"])
	assert.Equal(t, []any{ordtest.Inscription.String()}, sat["inscriptions"])

	status, _ = get(t, app, "/v1/sat/-1")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRune(t *testing.T) {
	app := newTestApp(t)

	for _, id := range []string{ordtest.RuneId.String(), url.PathEscape("TEST•RUNE"), "TESTRUNE"} {
		t.Run(id, func(t *testing.T) {
			status, body := get(t, app, "/v1/rune/"+id)
			require.Equal(t, http.StatusOK, status)
			entry := result(t, body)
			assert.Equal(t, ordtest.RuneId.String(), entry["id"])
			assert.Equal(t, "TEST•RUNE", entry["name"])
			assert.Equal(t, "10", entry["supply"])
			assert.Nil(t, entry["terms"])
			assert.Equal(t, false, entry["mintable"])
		})
	}

	status, _ := get(t, app, "/v1/rune/NOSUCHRUNE")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestWalletBalance(t *testing.T) {
	app := newTestApp(t)
	post := func(outPoints ...string) (int, map[string]any) {
		payload, err := json.Marshal(map[string]any{"outpoints": outPoints})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/v1/wallet/balance", strings.NewReader(string(payload)))
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
		resp, body := do(t, app, req)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(body, &decoded), string(body))
		return resp.StatusCode, decoded
	}

	status, body := post(ordtest.InscribedOutput.String(), ordtest.RunicOutput.String(), ordtest.PlainOutput.String())
	require.Equal(t, http.StatusOK, status)
	balance := result(t, body)
	assert.EqualValues(t, ordtest.PlainValue, balance["cardinal"])
	assert.EqualValues(t, ordtest.InscribedValue, balance["ordinal"])
	assert.EqualValues(t, ordtest.RunicValue, balance["runic"])
	assert.EqualValues(t, ordtest.PlainValue+ordtest.InscribedValue+ordtest.RunicValue, balance["total"])
	require.Len(t, balance["runes"], 1)

	status, _ = post(ordtest.SpentOutput.String())
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = post(strings.Repeat("cd", 32) + ":0")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = post("garbage")
	assert.Equal(t, http.StatusBadRequest, status)
}
