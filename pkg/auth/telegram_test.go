package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signWidget(botToken string, d LoginWidgetData) string {
	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(d.checkString()))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestLoginWidgetData_CheckString(t *testing.T) {
	d := LoginWidgetData{ID: 7, FirstName: "Ann", Username: "ann", AuthDate: 100}
	assert.Equal(t, "auth_date=100\nfirst_name=Ann\nid=7\nusername=ann", d.checkString())
}

func TestTelegramAuth_VerifyLoginWidget(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ta := NewTelegramAuth("bot-token", false)
	ta.now = func() time.Time { return now }

	d := LoginWidgetData{ID: 7, FirstName: "Ann", Username: "ann", AuthDate: now.Unix() - 60}
	d.Hash = signWidget("bot-token", d)

	user, err := ta.VerifyLoginWidget(d)
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "ann", user.Username)

	tampered := d
	tampered.Username = "mallory"
	_, err = ta.VerifyLoginWidget(tampered)
	assert.ErrorIs(t, err, ErrTelegramHashMismatch)

	old := LoginWidgetData{ID: 7, FirstName: "Ann", AuthDate: now.Add(-48 * time.Hour).Unix()}
	old.Hash = signWidget("bot-token", old)
	_, err = ta.VerifyLoginWidget(old)
	assert.ErrorIs(t, err, ErrTelegramAuthExpired)
}

func TestTelegramAuth_VerifyLoginWidget_DebugSkipsHash(t *testing.T) {
	ta := NewTelegramAuth("", true)

	user, err := ta.VerifyLoginWidget(LoginWidgetData{ID: 9, FirstName: "Bo", LastName: "Li"})
	require.NoError(t, err)
	assert.Equal(t, "Bo Li", user.Username)
}
