package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"hr-assistant-go/internal/config"
	"hr-assistant-go/internal/middleware"
	"hr-assistant-go/internal/model"
	"hr-assistant-go/internal/rbac"
	"hr-assistant-go/internal/repository"
	"hr-assistant-go/internal/service"
	"hr-assistant-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssistant struct {
	mu   sync.Mutex
	msgs []model.IncomingMessage
}

func (f *fakeAssistant) ProcessMessage(_ context.Context, msg model.IncomingMessage) model.AssistantResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return model.AssistantResponse{Answer: "Tienes 12 días.", Confidence: 0.8}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setup(t *testing.T) (*gin.Engine, *fakeAssistant, service.ContextService, *token.JWTManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwtManager := token.NewJWTManager("secret", 1)
	assistant := &fakeAssistant{}
	store, err := repository.NewContextStore(repository.ContextStoreMemory)
	require.NoError(t, err)
	contexts := service.NewContextService(store)
	policy, err := rbac.NewPolicy(config.DefaultFullAccessRoles)
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.RequestLogger())
	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(jwtManager))
	{
		ah := NewAssistantHandler(assistant)
		ch := NewConversationHandler(contexts, 15*time.Minute)
		api.POST("/assistant/messages", ah.PostMessage)
		api.GET("/assistant/context", ch.GetContext)
		api.GET("/assistant/context/:userId", middleware.FullAccessMiddleware(policy), ch.GetUserContext)
	}
	r.GET("/chat/:token", NewChatHandler(assistant, jwtManager).Handle)
	return r, assistant, contexts, jwtManager
}

func do(r http.Handler, method, path, tok, body string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestPostMessage(t *testing.T) {
	r, assistant, _, jwtManager := setup(t)
	tok, err := jwtManager.GenerateToken("E1", "Ana Ruiz", "auxiliar")
	require.NoError(t, err)

	w, env := do(r, http.MethodPost, "/api/v1/assistant/messages", tok, `{"mensaje":"  ¿cuántas vacaciones me quedan?  "}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 200, env.Code)
	var resp model.AssistantResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "Tienes 12 días.", resp.Answer)

	require.Len(t, assistant.msgs, 1)
	assert.Equal(t, "¿cuántas vacaciones me quedan?", assistant.msgs[0].Text)
	assert.Equal(t, model.User{ID: "E1", Name: "Ana Ruiz", Role: "auxiliar"}, assistant.msgs[0].User)
}

func TestPostMessage_Rejections(t *testing.T) {
	r, assistant, _, jwtManager := setup(t)
	tok, err := jwtManager.GenerateToken("E1", "Ana", "")
	require.NoError(t, err)

	w, _ := do(r, http.MethodPost, "/api/v1/assistant/messages", "", `{"mensaje":"hola"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(r, http.MethodPost, "/api/v1/assistant/messages", "garbage", `{"mensaje":"hola"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(r, http.MethodPost, "/api/v1/assistant/messages", tok, `{"mensaje":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(r, http.MethodPost, "/api/v1/assistant/messages", tok, `{"mensaje":"`+strings.Repeat("a", maxMessageRunes+1)+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Empty(t, assistant.msgs)
}

func TestGetContext(t *testing.T) {
	r, _, contexts, jwtManager := setup(t)
	tok, err := jwtManager.GenerateToken("E1", "Ana", "auxiliar")
	require.NoError(t, err)

	w, env := do(r, http.MethodGet, "/api/v1/assistant/context", tok, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 404, env.Code)

	contexts.Save(context.Background(), "E1", model.IntentLeave, model.Entities{LeaveType: model.LeaveVacation}, "vacaciones", []model.Row{{"a": 1}})
	w, env = do(r, http.MethodGet, "/api/v1/assistant/context", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	var dto map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	assert.Equal(t, "leave", dto["lastIntent"])
	assert.Equal(t, float64(1), dto["rowCount"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`, dto["expiresAt"])
}

func TestGetUserContext_RequiresFullAccess(t *testing.T) {
	r, _, contexts, jwtManager := setup(t)
	contexts.Save(context.Background(), "E1", model.IntentPayroll, model.Entities{}, "nominas", nil)

	staff, err := jwtManager.GenerateToken("E2", "Luis", "auxiliar")
	require.NoError(t, err)
	w, _ := do(r, http.MethodGet, "/api/v1/assistant/context/E1", staff, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	boss, err := jwtManager.GenerateToken("S1", "Eva", "Supervisora")
	require.NoError(t, err)
	w, _ = do(r, http.MethodGet, "/api/v1/assistant/context/E1", boss, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChatWebsocket(t *testing.T) {
	r, assistant, _, jwtManager := setup(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	tok, err := jwtManager.GenerateToken("E1", "Ana", "")
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/" + tok
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	var frame map[string]interface{}
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "pong", frame["type"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("mis fichajes de hoy")))
	frame = nil
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "response", frame["type"])
	data := frame["data"].(map[string]interface{})
	assert.Equal(t, "Tienes 12 días.", data["respuesta"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"mensaje":"mis nominas"}`)))
	frame = nil
	require.NoError(t, conn.ReadJSON(&frame))

	assistant.mu.Lock()
	defer assistant.mu.Unlock()
	require.Len(t, assistant.msgs, 2)
	assert.Equal(t, "mis nominas", assistant.msgs[1].Text)
	assert.Equal(t, "E1", assistant.msgs[1].User.ID)

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/chat/bad", nil)
	assert.Error(t, err)
}

func TestParseFrame(t *testing.T) {
	text, ping := parseFrame([]byte(`  hola  `))
	assert.Equal(t, "hola", text)
	assert.False(t, ping)

	_, ping = parseFrame([]byte(`{"type":"ping"}`))
	assert.True(t, ping)

	text, _ = parseFrame([]byte(`{not json`))
	assert.Equal(t, "{not json", text)
}
