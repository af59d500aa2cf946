package handlers

import (
	"net/http"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const sessionCookie = "session_id"

// AuthSessions maps login cookies to user ids. A user holds at most one
// login at a time.
type AuthSessions struct {
	mu     sync.RWMutex
	tokens map[string]int
}

func NewAuthSessions() *AuthSessions {
	return &AuthSessions{tokens: make(map[string]int)}
}

// Login drops any previous login of userID and returns a fresh token.
func (a *AuthSessions) Login(userID int) string {
	token := uuid.NewString()

	a.mu.Lock()
	defer a.mu.Unlock()
	for t, id := range a.tokens {
		if id == userID {
			delete(a.tokens, t)
		}
	}
	a.tokens[token] = userID
	return token
}

func (a *AuthSessions) Logout(token string) {
	a.mu.Lock()
	delete(a.tokens, token)
	a.mu.Unlock()
}

func (a *AuthSessions) UserID(token string) (int, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	id, ok := a.tokens[token]
	return id, ok
}

func (a *AuthSessions) fromRequest(r *http.Request) (int, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return 0, false
	}
	return a.UserID(cookie.Value)
}

func setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

func validUsername(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return len(s) >= 3 && len(s) <= 30 && usernameRegex.MatchString(s)
}

// validPassword wants 8-72 bytes (bcrypt's limit) with a letter and a digit.
func validPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()
	if len(password) < 8 || len(password) > 72 {
		return false
	}
	hasLetter := false
	hasNumber := false
	for _, char := range password {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') {
			hasLetter = true
		}
		if char >= '0' && char <= '9' {
			hasNumber = true
		}
	}
	return hasLetter && hasNumber
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("username", validUsername)
	v.RegisterValidation("password", validPassword)
	return v
}
