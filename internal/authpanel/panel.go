// internal/authpanel/panel.go
package authpanel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Mode string

const (
	ModeLogin    Mode = "login"
	ModeRegister Mode = "register"
)

func (m Mode) action() string {
	if m == ModeRegister {
		return "Registration"
	}
	return "Login"
}

type Connectivity int

const (
	ConnectivityUnknown Connectivity = iota
	Connected
	Disconnected
)

const (
	DefaultProbeTimeout = 3 * time.Second
	DefaultSuccessDelay = 500 * time.Millisecond

	minUsernameLength = 3
	maxUsernameLength = 20
	minPasswordLength = 6
)

// Panel - состояние формы входа/регистрации. Не потокобезопасна:
// методы вызываются из одного цикла интерфейса.
type Panel struct {
	BaseURL      string
	Client       *http.Client
	Storage      Storage
	OnSuccess    func(username, token string)
	SuccessDelay time.Duration
	ProbeTimeout time.Duration
	Log          logrus.FieldLogger

	Mode            Mode
	Username        string
	Password        string
	ConfirmPassword string

	Error            string
	Success          string
	Loading          bool
	BackendConnected Connectivity
}

func New(baseURL string, storage Storage, onSuccess func(username, token string)) *Panel {
	return &Panel{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		Client:       &http.Client{},
		Storage:      storage,
		OnSuccess:    onSuccess,
		SuccessDelay: DefaultSuccessDelay,
		ProbeTimeout: DefaultProbeTimeout,
		Log:          logrus.StandardLogger(),
		Mode:         ModeLogin,
	}
}

// ToggleMode переключает вход/регистрацию и сбрасывает пароли и сообщения
func (p *Panel) ToggleMode() {
	if p.Mode == ModeLogin {
		p.Mode = ModeRegister
	} else {
		p.Mode = ModeLogin
	}
	p.Error = ""
	p.Success = ""
	p.Password = ""
	p.ConfirmPassword = ""
}

// Probe проверяет /api/health с коротким таймаутом
func (p *Panel) Probe(ctx context.Context) Connectivity {
	ctx, cancel := context.WithTimeout(ctx, p.ProbeTimeout)
	defer cancel()

	p.BackendConnected = Disconnected

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/api/health", nil)
	if err != nil {
		return p.BackendConnected
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		p.Log.WithError(err).Debug("Backend probe failed")
		return p.BackendConnected
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		p.BackendConnected = Connected
	}
	return p.BackendConnected
}

func (p *Panel) fail(msg string) error {
	p.Error = msg
	return errors.New(msg)
}

// Submit проверяет поля и отправляет форму. Ошибка, если она есть, совпадает с p.Error.
func (p *Panel) Submit(ctx context.Context) error {
	p.Error = ""
	p.Success = ""

	if p.BackendConnected == Disconnected {
		return p.fail(fmt.Sprintf("Cannot reach the backend server (%s). Make sure it is running.", p.BaseURL))
	}

	username := strings.TrimSpace(p.Username)
	if username == "" || strings.TrimSpace(p.Password) == "" {
		return p.fail("Please enter username and password")
	}

	if p.Mode == ModeRegister {
		if p.Password != p.ConfirmPassword {
			return p.fail("Passwords do not match")
		}
		if utf8.RuneCountInString(p.Password) < minPasswordLength {
			return p.fail("Password must be at least 6 characters")
		}
		if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
			return p.fail("Username must be between 3 and 20 characters")
		}
	}

	p.Loading = true
	defer func() { p.Loading = false }()

	status, text, err := p.post(ctx, username)
	if err != nil {
		p.Log.WithError(err).Warn("Auth request failed")
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return p.fail(fmt.Sprintf("Cannot reach the server (%s). Make sure the backend is running.", p.BaseURL))
		}
		return p.fail("Network error: " + errors.Cause(err).Error())
	}

	data := map[string]any{}
	if len(text) > 0 {
		if err := json.Unmarshal(text, &data); err != nil {
			return p.fail(fmt.Sprintf("Server error (%d): %s", status, text))
		}
	}

	if status < 200 || status >= 300 {
		return p.fail(p.errorDetail(data))
	}

	respUsername := stringField(data, "username")
	token := stringField(data, "token")
	if respUsername == "" || token == "" {
		return p.fail("Incomplete server response, please try again")
	}

	isAdmin := "false"
	if p.Mode == ModeLogin {
		if v, ok := data["isAdmin"].(bool); ok && v {
			isAdmin = "true"
		}
	}

	for _, kv := range [][2]string{
		{KeyUsername, respUsername},
		{KeyAuthToken, token},
		{KeyUserID, stringField(data, "userId")},
		{KeyIsAdmin, isAdmin},
	} {
		if err := p.Storage.Set(kv[0], kv[1]); err != nil {
			return p.fail("Failed to store credentials: " + err.Error())
		}
	}

	p.Success = p.Mode.action() + " successful!"

	if p.OnSuccess != nil {
		onSuccess := p.OnSuccess
		time.AfterFunc(p.SuccessDelay, func() { onSuccess(respUsername, token) })
	}
	return nil
}

func (p *Panel) post(ctx context.Context, username string) (int, []byte, error) {
	endpoint := "/api/auth/login"
	if p.Mode == ModeRegister {
		endpoint = "/api/auth/register"
	}

	payload, err := json.Marshal(map[string]string{"username": username, "password": p.Password})
	if err != nil {
		return 0, nil, errors.Wrap(err, "encode credentials")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	// тело читается один раз, разбор уже после
	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.Wrap(err, "read response")
	}
	return resp.StatusCode, text, nil
}

// errorDetail показывает ответ сервера как есть: сначала error, затем подробности из message
func (p *Panel) errorDetail(data map[string]any) string {
	errText := stringField(data, "error")
	message := stringField(data, "message")

	if message != "" && message != errText {
		if errText == "" {
			errText = p.Mode.action() + " failed"
		}
		return errText + ": " + message
	}
	if errText != "" {
		return errText
	}
	if message != "" {
		return message
	}
	return p.Mode.action() + " failed"
}

func stringField(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
