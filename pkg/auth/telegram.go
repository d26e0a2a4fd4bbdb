package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"
)

const expTime = 24 * time.Hour

var (
	ErrTelegramHashMismatch = errors.New("telegram auth hash mismatch")
	ErrTelegramAuthExpired  = errors.New("telegram auth data expired")
)

type TelegramAuth struct {
	botToken  string
	debugMode bool
	now       func() time.Time
}

func NewTelegramAuth(botToken string, debugMode bool) *TelegramAuth {
	return &TelegramAuth{
		botToken:  botToken,
		debugMode: debugMode,
		now:       time.Now,
	}
}

func (t *TelegramAuth) GetBotToken() string {
	return t.botToken
}

type TelegramUserData struct {
	ID       int64
	Username string
	AuthDate time.Time
}

// ValidateInitData checks Mini App init data and extracts the user it was
// issued for.
func (t *TelegramAuth) ValidateInitData(raw string) (*TelegramUserData, error) {
	if !t.debugMode {
		if err := initdata.Validate(raw, t.botToken, expTime); err != nil {
			return nil, fmt.Errorf("invalid telegram init data: %w", err)
		}
	}

	data, err := initdata.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse telegram init data: %w", err)
	}
	if data.User.ID == 0 {
		return nil, fmt.Errorf("telegram init data has no user")
	}

	return &TelegramUserData{
		ID:       data.User.ID,
		Username: DisplayName(data.User.Username, data.User.FirstName, data.User.LastName),
		AuthDate: data.AuthDate(),
	}, nil
}

// LoginWidgetData is the object the Telegram Login Widget hands to its callback.
type LoginWidgetData struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
	AuthDate  int64  `json:"auth_date"`
	Hash      string `json:"hash"`
}

// VerifyLoginWidget checks the widget hash: HMAC-SHA256 keyed with
// SHA256(bot token) over the sorted key=value lines.
func (t *TelegramAuth) VerifyLoginWidget(d LoginWidgetData) (*TelegramUserData, error) {
	authDate := time.Unix(d.AuthDate, 0)

	if !t.debugMode {
		secret := sha256.Sum256([]byte(t.botToken))
		mac := hmac.New(sha256.New, secret[:])
		mac.Write([]byte(d.checkString()))
		expected := hex.EncodeToString(mac.Sum(nil))

		if !hmac.Equal([]byte(expected), []byte(strings.ToLower(d.Hash))) {
			return nil, ErrTelegramHashMismatch
		}
		if t.now().Sub(authDate) > expTime {
			return nil, ErrTelegramAuthExpired
		}
	}

	return &TelegramUserData{
		ID:       d.ID,
		Username: DisplayName(d.Username, d.FirstName, d.LastName),
		AuthDate: authDate,
	}, nil
}

func (d LoginWidgetData) checkString() string {
	fields := map[string]string{
		"id":        strconv.FormatInt(d.ID, 10),
		"auth_date": strconv.FormatInt(d.AuthDate, 10),
	}
	if d.FirstName != "" {
		fields["first_name"] = d.FirstName
	}
	if d.LastName != "" {
		fields["last_name"] = d.LastName
	}
	if d.Username != "" {
		fields["username"] = d.Username
	}
	if d.PhotoURL != "" {
		fields["photo_url"] = d.PhotoURL
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=" + fields[k]
	}
	return strings.Join(lines, "\n")
}

// DisplayName prefers the Telegram handle and falls back to the full name.
func DisplayName(username, first, last string) string {
	if username != "" {
		return username
	}
	return strings.TrimSpace(first + " " + last)
}
