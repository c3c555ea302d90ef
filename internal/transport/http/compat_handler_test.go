package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleLoginCreateRandomAlias(t *testing.T) {
	router, store := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/alias/random/new",
		map[string]any{"note": "注册用"}, asBearer(testAPIToken))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Alias string `json:"alias"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, strings.HasSuffix(resp.Alias, "@example.com"), resp.Alias)

	a, err := store.GetAlias(context.Background(), resp.Alias)
	require.NoError(t, err)
	assert.Equal(t, "box@example.com", a.Target)
	assert.Equal(t, "box@example.com", a.Owner)
	assert.Equal(t, "注册用", a.Comment)
	assert.True(t, a.Active)
	assert.False(t, a.Provisioned)
}

func TestSimpleLoginRequiresToken(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/alias/random/new",
		map[string]any{"note": ""}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/alias/random/new",
		map[string]any{"note": ""}, asBearer("bogus-token-0123456789"))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAddyCreateAliasRandomDomain(t *testing.T) {
	router, store := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/aliases",
		map[string]any{"domain": "", "description": "shopping"}, asBearer(testAPIToken))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	email, _ := resp.Data["email"].(string)
	require.True(t, strings.HasSuffix(email, "@example.com"), email)
	assert.Equal(t, "example.com", resp.Data["domain"])
	assert.Equal(t, "shopping", resp.Data["description"])
	assert.Equal(t, true, resp.Data["active"])
	assert.Equal(t, zeroUUID, resp.Data["id"])
	assert.Nil(t, resp.Data["aliasable_id"])

	a, err := store.GetAlias(context.Background(), email)
	require.NoError(t, err)
	assert.Equal(t, "shopping", a.Comment)
}

// "random" 哨兵值与空串等价。
func TestAddyCreateAliasRandomSentinel(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/aliases",
		map[string]any{"domain": "random"}, asBearer(testAPIToken))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestAddyCreateAliasExplicitDomain(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/aliases",
		map[string]any{"domain": "example.com", "description": ""}, asBearer(testAPIToken))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// 不存在或不可用的域返回 400，格式是兼容接口的平铺错误
	w = doJSON(t, router, http.MethodPost, "/api/v1/aliases",
		map[string]any{"domain": "nope.org"}, asBearer(testAPIToken))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
}
